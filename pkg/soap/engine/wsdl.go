package engine

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/beevik/etree"
	"github.com/getmockd/soapd/pkg/logging"
	"github.com/getmockd/soapd/pkg/util"
	"github.com/hashicorp/golang-lru/v2/expirable"
)

// maxWSDLSize bounds remote WSDL downloads.
const maxWSDLSize = 8 << 20

const wsdlNamespace = "http://schemas.xmlsoap.org/wsdl/"

// CacheTTL is how long a cached WSDL document is served before it is
// loaded again, in memory and on disk.
const CacheTTL = 24 * time.Hour

// memoryCache holds parsed WSDL documents shared by every engine in the process.
var memoryCache = expirable.NewLRU[string, *WSDL](64, nil, CacheTTL)

// WSDL is the subset of a service description the engine uses.
type WSDL struct {
	TargetNamespace string
	Operations      []string
	Raw             []byte

	ops map[string]struct{}
}

// HasOperation reports whether name may be dispatched. A description that
// lists no operations does not restrict dispatch.
func (w *WSDL) HasOperation(name string) bool {
	if len(w.ops) == 0 {
		return true
	}
	_, ok := w.ops[name]
	return ok
}

// ParseWSDL extracts the target namespace and operation names from a WSDL 1.1
// document.
func ParseWSDL(data []byte) (*WSDL, error) {
	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(data); err != nil {
		return nil, fmt.Errorf("invalid WSDL XML: %w", err)
	}
	root := doc.Root()
	if root == nil || root.Tag != "definitions" {
		return nil, errors.New("couldn't find <definitions> in WSDL")
	}
	if ns := root.NamespaceURI(); ns != "" && ns != wsdlNamespace {
		return nil, fmt.Errorf("unexpected WSDL namespace %q", ns)
	}

	w := &WSDL{
		TargetNamespace: root.SelectAttrValue("targetNamespace", ""),
		Raw:             data,
		ops:             make(map[string]struct{}),
	}
	for _, section := range []string{"portType", "binding"} {
		for _, parent := range root.SelectElements(section) {
			for _, op := range parent.SelectElements("operation") {
				name := op.SelectAttrValue("name", "")
				if name == "" {
					continue
				}
				if _, dup := w.ops[name]; dup {
					continue
				}
				w.ops[name] = struct{}{}
				w.Operations = append(w.Operations, name)
			}
		}
	}
	return w, nil
}

// Loader fetches WSDL documents from files or http(s) URLs.
type Loader struct {
	Client   *http.Client
	CacheDir string
	Mode     CacheMode
	Logger   *slog.Logger
}

// Load reads and parses src, consulting the caches selected by Mode.
func (l *Loader) Load(src string) (*WSDL, error) {
	key := src
	remote := isRemote(src)
	if !remote {
		p, ok := util.SafeFilePathAllowAbsolute(src)
		if !ok {
			return nil, fmt.Errorf("unsafe WSDL path %q", src)
		}
		src = p
		if fi, err := os.Stat(p); err == nil {
			key = fmt.Sprintf("%s@%d", p, fi.ModTime().UnixNano())
		}
	}

	if l.Mode&CacheMemory != 0 {
		if w, ok := memoryCache.Get(key); ok {
			return w, nil
		}
	}

	data, err := l.read(src, remote)
	if err != nil {
		return nil, err
	}
	w, err := ParseWSDL(data)
	if err != nil {
		return nil, err
	}

	if l.Mode&CacheMemory != 0 {
		memoryCache.Add(key, w)
	}
	return w, nil
}

func (l *Loader) read(src string, remote bool) ([]byte, error) {
	if !remote {
		data, err := os.ReadFile(src)
		if err != nil {
			return nil, fmt.Errorf("failed to load WSDL file %q: %w", src, err)
		}
		return data, nil
	}

	diskPath := ""
	if l.Mode&CacheDisk != 0 {
		diskPath = l.diskPath(src)
		if fi, err := os.Stat(diskPath); err == nil && time.Since(fi.ModTime()) < CacheTTL {
			if data, err := os.ReadFile(diskPath); err == nil {
				return data, nil
			}
		}
	}

	data, err := l.fetch(src)
	if err != nil {
		return nil, err
	}

	if diskPath != "" {
		if err := writeCacheFile(diskPath, data); err != nil {
			l.log().Debug("wsdl disk cache write failed", "url", src, "path", diskPath, "error", err)
		}
	}
	return data, nil
}

func writeCacheFile(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

func (l *Loader) log() *slog.Logger {
	if l.Logger == nil {
		return logging.Nop()
	}
	return l.Logger
}

func (l *Loader) fetch(url string) ([]byte, error) {
	client := l.Client
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	resp, err := client.Get(url)
	if err != nil {
		return nil, fmt.Errorf("couldn't load from %q: %w", url, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("couldn't load from %q: status %d", url, resp.StatusCode)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxWSDLSize))
	if err != nil {
		return nil, fmt.Errorf("couldn't load from %q: %w", url, err)
	}
	return data, nil
}

func (l *Loader) diskPath(src string) string {
	dir := l.CacheDir
	if dir == "" {
		dir = filepath.Join(os.TempDir(), "soapd-wsdl")
	}
	sum := sha256.Sum256([]byte(src))
	return filepath.Join(dir, "wsdl-"+hex.EncodeToString(sum[:16]))
}

func isRemote(src string) bool {
	lower := strings.ToLower(src)
	return strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://")
}
