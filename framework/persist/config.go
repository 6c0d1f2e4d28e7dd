// Copyright (C) 2017 Google Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package persist

import (
	"os"
	"runtime"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/graphstore/graphstore/framework/persist/class"
	"github.com/graphstore/graphstore/framework/persist/registry"
)

// DefaultMaxPublicObjects is the collection size limit of public-only saves
// when Config.MaxPublicObjects is zero.
const DefaultMaxPublicObjects = 10000

// Config holds the options of a save, load or clone. The zero value is the
// default configuration.
type Config struct {
	// Name is the document name recorded in the stream header.
	Name string `yaml:"name"`
	// PublicOnly restricts a save to public types and members.
	PublicOnly bool `yaml:"public_only"`
	// MaxPublicObjects bounds the size of each collection of a public-only save.
	MaxPublicObjects int `yaml:"max_public_objects"`
	// Workers is the number of type blocks encoded in parallel. Zero uses
	// GOMAXPROCS.
	Workers int `yaml:"workers"`
	// Preload makes lazy sessions read a type's whole block the first time
	// one of its instances is loaded.
	Preload bool `yaml:"preload"`

	// Namespace resolves types. Nil uses registry.Global.
	Namespace *registry.Namespace `yaml:"-"`
	// Annotator provides visibility and exclusion annotations. Nil reads
	// them from the class descriptors.
	Annotator class.Annotator `yaml:"-"`
}

// ParseConfig parses a YAML configuration.
func ParseConfig(data []byte) (Config, error) {
	cfg := Config{}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, errors.Wrap(err, "parsing config")
	}
	if cfg.MaxPublicObjects < 0 || cfg.Workers < 0 {
		return Config{}, errors.New("config limits must not be negative")
	}
	return cfg, nil
}

// LoadConfig reads a YAML configuration file.
func LoadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, errors.Wrapf(err, "reading config %s", path)
	}
	return ParseConfig(data)
}

func (c Config) withDefaults() Config {
	if c.Namespace == nil {
		c.Namespace = registry.Global
	}
	if c.Annotator == nil {
		c.Annotator = class.Declared{}
	}
	if c.MaxPublicObjects == 0 {
		c.MaxPublicObjects = DefaultMaxPublicObjects
	}
	if c.Workers <= 0 {
		c.Workers = runtime.GOMAXPROCS(0)
	}
	return c
}
