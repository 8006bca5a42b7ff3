package i18n

import (
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strconv"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

// Translator resolves a message id for a locale. Implementations return an
// error when the key cannot be resolved so callers can apply their own fallback.
type Translator interface {
	Translate(locale, key string, args ...any) (string, error)
}

// MissingTranslationHandler produces the string used when a translation is
// missing. err carries the translator failure, if any.
type MissingTranslationHandler func(locale, key string, args []any, err error) string

// Args carries named placeholder values for a message.
type Args = map[string]any

// Catalog is an in-memory Translator backed by flattened YAML documents.
type Catalog struct {
	mu       sync.RWMutex
	fallback string
	messages map[string]map[string]string
}

// CatalogOption customises a Catalog.
type CatalogOption func(*Catalog)

// WithFallbackLocale sets the locale consulted when a key is missing from the
// requested one.
func WithFallbackLocale(locale string) CatalogOption {
	return func(c *Catalog) {
		c.fallback = normalizeLocale(locale)
	}
}

// NewCatalog constructs an empty catalog.
func NewCatalog(opts ...CatalogOption) *Catalog {
	c := &Catalog{
		fallback: DefaultLocale,
		messages: make(map[string]map[string]string),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	return c
}

// Default returns a catalog preloaded with the embedded en and es messages.
func Default(opts ...CatalogOption) (*Catalog, error) {
	c := NewCatalog(opts...)
	if err := c.LoadFS(catalogFS, "catalogs"); err != nil {
		return nil, err
	}
	return c, nil
}

// MustDefault is Default that panics on error. The embedded catalogs are
// compiled in, so a failure is a build defect.
func MustDefault(opts ...CatalogOption) *Catalog {
	c, err := Default(opts...)
	if err != nil {
		panic(err)
	}
	return c
}

// LoadFS loads every <locale>.yaml file found directly under dir.
func (c *Catalog) LoadFS(fsys fs.FS, dir string) error {
	entries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return fmt.Errorf("i18n: read catalogs: %w", err)
	}
	for _, entry := range entries {
		name := entry.Name()
		ext := path.Ext(name)
		if entry.IsDir() || (ext != ".yaml" && ext != ".yml") {
			continue
		}
		data, err := fs.ReadFile(fsys, path.Join(dir, name))
		if err != nil {
			return fmt.Errorf("i18n: read %s: %w", name, err)
		}
		if err := c.Add(strings.TrimSuffix(name, ext), data); err != nil {
			return err
		}
	}
	return nil
}

// Add merges a YAML document into the messages of locale.
func (c *Catalog) Add(locale string, data []byte) error {
	var doc map[string]any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrInvalidCatalog, locale, err)
	}
	flat := make(map[string]string)
	if err := flatten("", doc, flat); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrInvalidCatalog, locale, err)
	}

	locale = normalizeLocale(locale)
	c.mu.Lock()
	defer c.mu.Unlock()
	bucket := c.messages[locale]
	if bucket == nil {
		bucket = make(map[string]string, len(flat))
		c.messages[locale] = bucket
	}
	for key, msg := range flat {
		bucket[key] = msg
	}
	return nil
}

// Set registers a single message.
func (c *Catalog) Set(locale, key, message string) {
	locale = normalizeLocale(locale)
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.messages[locale] == nil {
		c.messages[locale] = make(map[string]string)
	}
	c.messages[locale][strings.TrimSpace(key)] = message
}

// Locales lists the loaded locales in sorted order.
func (c *Catalog) Locales() []string {
	if c == nil {
		return nil
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]string, 0, len(c.messages))
	for locale := range c.messages {
		out = append(out, locale)
	}
	sort.Strings(out)
	return out
}

// Keys lists the message ids of locale in sorted order.
func (c *Catalog) Keys(locale string) []string {
	if c == nil {
		return nil
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	bucket := c.messages[normalizeLocale(locale)]
	out := make([]string, 0, len(bucket))
	for key := range bucket {
		out = append(out, key)
	}
	sort.Strings(out)
	return out
}

// Translate implements Translator. Lookup order is the exact locale, its base
// language (es-AR -> es), then the fallback locale.
func (c *Catalog) Translate(locale, key string, args ...any) (string, error) {
	if c == nil {
		return "", ErrMissingTranslator
	}
	key = strings.TrimSpace(key)
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, candidate := range localeChain(locale, c.fallback) {
		if msg, ok := c.messages[candidate][key]; ok && strings.TrimSpace(msg) != "" {
			return interpolate(msg, args), nil
		}
	}
	return "", fmt.Errorf("%w: %s (%s)", ErrMissingTranslation, key, locale)
}

func localeChain(locale, fallback string) []string {
	locale = normalizeLocale(locale)
	chain := make([]string, 0, 3)
	seen := make(map[string]struct{}, 3)
	add := func(l string) {
		if l == "" {
			return
		}
		if _, ok := seen[l]; ok {
			return
		}
		seen[l] = struct{}{}
		chain = append(chain, l)
	}
	add(locale)
	if base, _, ok := strings.Cut(locale, "-"); ok {
		add(base)
	}
	add(fallback)
	return chain
}

func normalizeLocale(locale string) string {
	locale = strings.TrimSpace(strings.ReplaceAll(locale, "_", "-"))
	return strings.ToLower(locale)
}

func flatten(prefix string, node any, out map[string]string) error {
	join := func(key string) string {
		if prefix == "" {
			return key
		}
		return prefix + "." + key
	}
	switch typed := node.(type) {
	case map[string]any:
		for key, child := range typed {
			if err := flatten(join(key), child, out); err != nil {
				return err
			}
		}
	case map[any]any:
		for key, child := range typed {
			if err := flatten(join(fmt.Sprint(key)), child, out); err != nil {
				return err
			}
		}
	case string:
		out[prefix] = typed
	case nil:
		return nil
	case bool, int, int64, float64:
		out[prefix] = fmt.Sprint(typed)
	default:
		return fmt.Errorf("unsupported value at %q (%T)", prefix, node)
	}
	return nil
}

// interpolate replaces {name} placeholders using every map argument.
func interpolate(msg string, args []any) string {
	if len(args) == 0 || !strings.Contains(msg, "{") {
		return msg
	}
	pairs := make([]string, 0, 4)
	for _, arg := range args {
		named, ok := arg.(map[string]any)
		if !ok {
			continue
		}
		for name, value := range named {
			pairs = append(pairs, "{"+name+"}", formatArg(value))
		}
	}
	if len(pairs) == 0 {
		return msg
	}
	return strings.NewReplacer(pairs...).Replace(msg)
}

func formatArg(value any) string {
	switch v := value.(type) {
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(v), 'f', -1, 32)
	case string:
		return v
	default:
		return fmt.Sprint(v)
	}
}
