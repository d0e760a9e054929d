package schema

import (
	"fmt"
	"io"
	"strings"

	"gopkg.in/yaml.v3"
)

type yamlCatalog struct {
	Models []struct {
		Name   string   `yaml:"name"`
		Table  string   `yaml:"table"`
		Fields []string `yaml:"fields"`
	} `yaml:"models"`
}

// ParseYAML reads a catalog of the form
//
//	models:
//	  - name: t_itens
//	    table: t_itens   # optional
//	    fields: [codigo, dtalt, isdeleted]
func ParseYAML(r io.Reader) ([]Model, error) {
	var cat yamlCatalog
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&cat); err != nil {
		if err == io.EOF {
			return nil, nil
		}
		return nil, err
	}

	models := make([]Model, 0, len(cat.Models))
	for i, m := range cat.Models {
		name := strings.TrimSpace(m.Name)
		if name == "" {
			return nil, fmt.Errorf("models[%d]: name is required", i)
		}
		table := strings.TrimSpace(m.Table)
		if table == "" {
			table = name
		}
		fields := make([]string, 0, len(m.Fields))
		for _, f := range m.Fields {
			if f = strings.TrimSpace(f); f != "" {
				fields = append(fields, f)
			}
		}
		models = append(models, Model{Name: name, Table: table, Fields: fields})
	}
	return models, nil
}
