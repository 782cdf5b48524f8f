// Package i18n provides the user-facing message catalogs.
package i18n

import (
	"embed"
	"fmt"
	"path"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// DefaultLang is used when no language is configured and as the fallback
// for keys missing from another catalog.
const DefaultLang = "en"

//go:embed locales/*.yaml
var localeFS embed.FS

// Catalog resolves dotted keys such as "dashboard.copy_success".
type Catalog struct {
	lang     string
	messages map[string]string
	fallback map[string]string
}

// Load returns the catalog for lang. Unknown languages fall back to
// DefaultLang.
func Load(lang string) (*Catalog, error) {
	base, err := readLocale(DefaultLang)
	if err != nil {
		return nil, err
	}

	lang = Normalize(lang)
	c := &Catalog{lang: DefaultLang, messages: base, fallback: base}
	if lang == DefaultLang {
		return c, nil
	}
	msgs, err := readLocale(lang)
	if err != nil {
		return c, nil
	}
	c.lang = lang
	c.messages = msgs
	return c, nil
}

// MustLoad is Load for callers that cannot handle an error. The embedded
// default catalog always parses, so it only panics on a broken build.
func MustLoad(lang string) *Catalog {
	c, err := Load(lang)
	if err != nil {
		panic(err)
	}
	return c
}

// Lang returns the language actually in use.
func (c *Catalog) Lang() string { return c.lang }

// T returns the message for key. Missing keys fall back to the default
// catalog and then to the key itself.
func (c *Catalog) T(key string) string {
	if c == nil {
		return key
	}
	if msg, ok := c.messages[key]; ok && msg != "" {
		return msg
	}
	if msg, ok := c.fallback[key]; ok && msg != "" {
		return msg
	}
	return key
}

// Tf formats the message for key with args.
func (c *Catalog) Tf(key string, args ...any) string {
	return fmt.Sprintf(c.T(key), args...)
}

// Keys returns every key of the active catalog, sorted.
func (c *Catalog) Keys() []string {
	keys := make([]string, 0, len(c.messages))
	for k := range c.messages {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Languages lists the embedded catalogs.
func Languages() []string {
	entries, err := localeFS.ReadDir("locales")
	if err != nil {
		return []string{DefaultLang}
	}
	var langs []string
	for _, e := range entries {
		name := e.Name()
		if strings.HasSuffix(name, ".yaml") {
			langs = append(langs, strings.TrimSuffix(name, ".yaml"))
		}
	}
	sort.Strings(langs)
	return langs
}

// Normalize maps locale strings like "zh_CN.UTF-8" or "en-US" to a catalog
// name.
func Normalize(lang string) string {
	lang = strings.ToLower(strings.TrimSpace(lang))
	if i := strings.IndexAny(lang, "_-."); i >= 0 {
		lang = lang[:i]
	}
	if lang == "" || lang == "c" || lang == "posix" {
		return DefaultLang
	}
	return lang
}

func readLocale(lang string) (map[string]string, error) {
	data, err := localeFS.ReadFile(path.Join("locales", lang+".yaml"))
	if err != nil {
		return nil, fmt.Errorf("locale %q: %w", lang, err)
	}
	var tree map[string]any
	if err := yaml.Unmarshal(data, &tree); err != nil {
		return nil, fmt.Errorf("parsing locale %q: %w", lang, err)
	}
	out := make(map[string]string)
	flatten("", tree, out)
	return out, nil
}

func flatten(prefix string, node map[string]any, out map[string]string) {
	for k, v := range node {
		key := k
		if prefix != "" {
			key = prefix + "." + k
		}
		switch val := v.(type) {
		case map[string]any:
			flatten(key, val, out)
		case string:
			out[key] = val
		case nil:
			out[key] = ""
		default:
			out[key] = fmt.Sprint(val)
		}
	}
}
