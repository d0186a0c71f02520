package catalog

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/stepgate/stepgate/pkg/api"
)

type fileItem struct {
	ID             string `yaml:"id"`
	Slug           string `yaml:"slug"`
	Code           string `yaml:"code"`
	Key            string `yaml:"key"`
	URLKey         string `yaml:"url_key"`
	Name           string `yaml:"name"`
	BasePriceMinor int64  `yaml:"base_price_minor"`
}

type fileOption struct {
	ID                   string `yaml:"id"`
	Name                 string `yaml:"name"`
	AdditionalPriceMinor int64  `yaml:"additional_price_minor"`
	AppliesToItemID      string `yaml:"applies_to_item_id"`
}

type fileCatalog struct {
	Items   []fileItem   `yaml:"items"`
	Options []fileOption `yaml:"options"`
}

// LoadStaticService reads a catalog definition from a YAML file.
func LoadStaticService(path string) (*StaticService, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog file: %w", err)
	}

	var fc fileCatalog
	if err := yaml.Unmarshal(raw, &fc); err != nil {
		return nil, fmt.Errorf("parse catalog file: %w", err)
	}

	items := make([]api.Item, 0, len(fc.Items))
	for _, it := range fc.Items {
		if it.ID == "" {
			return nil, fmt.Errorf("catalog item %q has no id", it.Name)
		}
		items = append(items, api.Item{
			ID:             it.ID,
			Slug:           it.Slug,
			Code:           it.Code,
			Key:            it.Key,
			URLKey:         it.URLKey,
			Name:           it.Name,
			BasePriceMinor: it.BasePriceMinor,
		})
	}

	options := make([]api.Option, 0, len(fc.Options))
	for _, op := range fc.Options {
		if op.ID == "" {
			return nil, fmt.Errorf("catalog option %q has no id", op.Name)
		}
		options = append(options, api.Option{
			ID:                   op.ID,
			Name:                 op.Name,
			AdditionalPriceMinor: op.AdditionalPriceMinor,
			AppliesToItemID:      op.AppliesToItemID,
		})
	}

	return NewStaticService(items, options), nil
}
