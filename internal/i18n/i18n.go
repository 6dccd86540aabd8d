// Package i18n loads per-locale message catalogs and negotiates locales.
package i18n

import (
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"maps"
	"path"
	"slices"
	"strings"

	"golang.org/x/text/language"
	"gopkg.in/yaml.v3"
)

// Namespace is the catalog file loaded for every locale.
const Namespace = "common"

//go:embed locales
var embedded embed.FS

// Catalog holds translated strings keyed by locale then message key.
type Catalog struct {
	defaultLocale string
	locales       []string
	messages      map[string]map[string]string
	matcher       language.Matcher
}

// Default loads the built-in catalogs for the given locales.
func Default(defaultLocale string, locales []string) (*Catalog, error) {
	sub, err := fs.Sub(embedded, "locales")
	if err != nil {
		return nil, err
	}
	return Load(sub, defaultLocale, locales)
}

// Load reads <locale>/common.yaml from fsys for every locale. The default
// locale must be one of locales.
func Load(fsys fs.FS, defaultLocale string, locales []string) (*Catalog, error) {
	if !slices.Contains(locales, defaultLocale) {
		return nil, fmt.Errorf("i18n: default locale %q not in %v", defaultLocale, locales)
	}

	// The matcher prefers the first tag on no match, so the default goes first.
	ordered := append([]string{defaultLocale}, slices.DeleteFunc(slices.Clone(locales), func(l string) bool {
		return l == defaultLocale
	})...)

	c := &Catalog{
		defaultLocale: defaultLocale,
		locales:       ordered,
		messages:      make(map[string]map[string]string, len(ordered)),
	}
	tags := make([]language.Tag, 0, len(ordered))
	for _, loc := range ordered {
		tag, err := language.Parse(loc)
		if err != nil {
			return nil, fmt.Errorf("i18n: parse locale %q: %w", loc, err)
		}
		tags = append(tags, tag)

		data, err := fs.ReadFile(fsys, path.Join(loc, Namespace+".yaml"))
		if err != nil {
			return nil, fmt.Errorf("i18n: read %s catalog: %w", loc, err)
		}
		msgs := map[string]string{}
		if err := yaml.Unmarshal(data, &msgs); err != nil {
			return nil, fmt.Errorf("i18n: parse %s catalog: %w", loc, err)
		}
		c.messages[loc] = msgs
	}
	c.matcher = language.NewMatcher(tags)
	return c, nil
}

// Merge overlays messages from any <locale>/common.yaml present in fsys
// onto the loaded catalogs. Locales without a file are left as they are.
func (c *Catalog) Merge(fsys fs.FS) error {
	for _, loc := range c.locales {
		data, err := fs.ReadFile(fsys, path.Join(loc, Namespace+".yaml"))
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return fmt.Errorf("i18n: read %s override: %w", loc, err)
		}
		msgs := map[string]string{}
		if err := yaml.Unmarshal(data, &msgs); err != nil {
			return fmt.Errorf("i18n: parse %s override: %w", loc, err)
		}
		maps.Copy(c.messages[loc], msgs)
	}
	return nil
}

// DefaultLocale returns the fallback locale.
func (c *Catalog) DefaultLocale() string {
	return c.defaultLocale
}

// Locales returns the supported locales, default first.
func (c *Catalog) Locales() []string {
	return slices.Clone(c.locales)
}

// Supports reports whether locale has a catalog.
func (c *Catalog) Supports(locale string) bool {
	_, ok := c.messages[locale]
	return ok
}

// T returns the message for key in locale, falling back to the default
// locale and then to the key itself.
func (c *Catalog) T(locale, key string) string {
	if s, ok := c.messages[locale][key]; ok {
		return s
	}
	if s, ok := c.messages[c.defaultLocale][key]; ok {
		return s
	}
	return key
}

// Format is T with {name} placeholders replaced from args, given as
// alternating name/value pairs.
func (c *Catalog) Format(locale, key string, args ...string) string {
	msg := c.T(locale, key)
	if len(args) == 0 {
		return msg
	}
	pairs := make([]string, 0, len(args))
	for i := 0; i+1 < len(args); i += 2 {
		pairs = append(pairs, "{"+args[i]+"}", args[i+1])
	}
	return strings.NewReplacer(pairs...).Replace(msg)
}

// Match picks the best supported locale for an Accept-Language header.
func (c *Catalog) Match(acceptLanguage string) string {
	tags, _, err := language.ParseAcceptLanguage(acceptLanguage)
	if err != nil || len(tags) == 0 {
		return c.defaultLocale
	}
	_, idx, _ := c.matcher.Match(tags...)
	return c.locales[idx]
}
