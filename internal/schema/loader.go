package schema

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

type document struct {
	Entities []*EntitySchema `yaml:"entities"`
}

// Decode читает YAML-документ. Поддерживаются две формы:
//
//	entities: [{name: customers, ...}]
//
// и карта "имя -> описание", как в исходном конфиге панели.
func Decode(r io.Reader) ([]*EntitySchema, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, nil
	}

	var probe map[string]yaml.Node
	if err := yaml.Unmarshal(data, &probe); err != nil {
		return nil, err
	}
	if _, ok := probe["entities"]; ok {
		var doc document
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return nil, err
		}
		return doc.Entities, nil
	}

	var byName map[string]*EntitySchema
	if err := yaml.Unmarshal(data, &byName); err != nil {
		return nil, err
	}
	names := make([]string, 0, len(byName))
	for n := range byName {
		names = append(names, n)
	}
	sort.Strings(names)
	out := make([]*EntitySchema, 0, len(names))
	for _, n := range names {
		e := byName[n]
		if e == nil {
			e = &EntitySchema{}
		}
		if e.Name == "" {
			e.Name = n
		}
		out = append(out, e)
	}
	return out, nil
}

// LoadFile читает схемы из одного YAML-файла.
func LoadFile(path string) ([]*EntitySchema, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	entities, err := Decode(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return entities, nil
}

// LoadDir читает все *.yaml / *.yml из папки (без рекурсии).
func LoadDir(dir string) ([]*EntitySchema, error) {
	files, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var out []*EntitySchema
	for _, file := range files {
		if file.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(file.Name()))
		if ext != ".yaml" && ext != ".yml" {
			continue
		}
		entities, err := LoadFile(filepath.Join(dir, file.Name()))
		if err != nil {
			return nil, err
		}
		out = append(out, entities...)
	}
	return out, nil
}

// Load принимает файл или папку и сразу собирает Registry.
func Load(path string) (*Registry, error) {
	st, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	var entities []*EntitySchema
	if st.IsDir() {
		entities, err = LoadDir(path)
	} else {
		entities, err = LoadFile(path)
	}
	if err != nil {
		return nil, err
	}
	if len(entities) == 0 {
		return nil, errors.New("no entity schemas found in " + path)
	}
	return NewRegistry(entities...)
}
