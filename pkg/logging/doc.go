// Package logging builds the slog loggers used across soapd.
//
// # Usage
//
//	logger := logging.New(logging.Config{
//	    Level:  logging.ParseLevel("debug"),
//	    Format: logging.FormatJSON,
//	})
//	logger.Info("listening", "addr", ":8080")
//
// Set Config.Tee to mirror every record as JSON into a second writer, such
// as an access log file.
//
// Components accept a *slog.Logger through an option or setter and fall back
// to Nop when none is given. Request-scoped loggers travel in a
// context.Context through NewContext and FromContext.
package logging
