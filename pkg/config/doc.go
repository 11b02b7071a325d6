// Package config loads the soapd daemon configuration.
//
// Configuration is read with viper from a YAML, TOML or JSON file and
// SOAPD_* environment variables, where nested keys join with underscores:
//
//	SOAPD_SERVER_ADDRESS=:9090
//	SOAPD_LOGGING_LEVEL=debug
//
// Without an explicit path, soapd.yaml is looked up in the working directory
// and then in $XDG_CONFIG_HOME/soapd. A missing file is not an error there.
//
// The soap section is not decoded here. It is handed unchanged to
// soap.Server.SetOptions through Config.SOAPOptions:
//
//	soap:
//	  uri: urn:greeter
//	  soap_version: 2
//	  classmap:
//	    - type: Greeting
//	      class: demo.Greeting
package config
