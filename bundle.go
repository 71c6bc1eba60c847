package i18nhttp

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/BurntSushi/toml"
	"github.com/nicksnyder/go-i18n/v2/i18n"
	"golang.org/x/text/language"
)

// LoadBundle fetches every language/namespace combination and feeds the
// parsed resources into a go-i18n bundle, one message file per pair.
func (b *Backend) LoadBundle(ctx context.Context, bundle *i18n.Bundle, languages, namespaces []string) error {
	bundle.RegisterUnmarshalFunc("json", json.Unmarshal)

	for _, lang := range languages {
		tag, err := language.Parse(lang)
		if err != nil {
			return fmt.Errorf("invalid language %q: %w", lang, err)
		}

		for _, ns := range namespaces {
			result, err := b.Load(ctx, []string{lang}, []string{ns})
			if err != nil {
				return err
			}
			if result == nil {
				continue
			}

			raw, err := json.Marshal(result.Data)
			if err != nil {
				return fmt.Errorf("encode %s/%s resources: %w", lang, ns, err)
			}

			path := fmt.Sprintf("%s.%s.json", ns, tag.String())
			if _, err = bundle.ParseMessageFileBytes(raw, path); err != nil {
				return fmt.Errorf("register %s: %w", path, err)
			}
		}
	}

	return nil
}

// ParseTOML is a ParseFunc for servers that publish translation resources as
// TOML documents. Wire it with WithParse.
func ParseTOML(body []byte, _, _ []string) (map[string]any, error) {
	var data map[string]any
	if err := toml.Unmarshal(body, &data); err != nil {
		return nil, err
	}
	return data, nil
}
