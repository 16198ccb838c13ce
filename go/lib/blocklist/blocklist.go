/*
 * Copyright 2022 Medicines Discovery Catapult
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *     http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

// Package blocklist holds surface texts that are never propagated beyond the
// document they were annotated in.
package blocklist

import (
	"io/ioutil"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"gitlab.mdcatapult.io/informatics/software-engineering/annotation-engine/go/lib/text"
	"gopkg.in/yaml.v2"
)

type Blocklist struct {
	CaseSensitive   map[string]bool
	CaseInsensitive map[string]bool
}

// Allowed returns true if surface is not blocklisted. A nil blocklist allows everything.
func (blocklist *Blocklist) Allowed(surface string) bool {
	if blocklist == nil {
		return true
	}

	if _, ok := blocklist.CaseSensitive[surface]; ok {
		return false
	}

	if _, ok := blocklist.CaseInsensitive[text.Fold(surface)]; ok {
		return false
	}

	return true
}

// Load returns an unmarshalled blocklist from a YAML file at the given path.
func Load(path string) (*Blocklist, error) {

	bytes, err := ioutil.ReadFile(path)
	if err != nil {
		log.Error().Str("path", path).Msg("could not find blocklist")
		return nil, errors.Wrapf(err, "read blocklist %s", path)
	}

	blocklist, err := Parse(bytes)
	if err != nil {
		log.Error().Str("path", path).Msg("could not load blocklist")
		return nil, err
	}

	log.Info().Str("path", path).Int("entries", len(blocklist.CaseSensitive)+len(blocklist.CaseInsensitive)).Msg("blocklist set")

	return blocklist, nil
}

// Parse reads a blocklist from YAML with case_sensitive and case_insensitive lists.
// Case-insensitive entries are stored folded.
func Parse(bytes []byte) (*Blocklist, error) {
	type yamlBlocklist struct {
		CaseSensitive   []string `yaml:"case_sensitive"`
		CaseInsensitive []string `yaml:"case_insensitive"`
	}

	yamlBl := yamlBlocklist{}
	if err := yaml.Unmarshal(bytes, &yamlBl); err != nil {
		return nil, errors.Wrap(err, "parse blocklist")
	}

	res := Blocklist{
		CaseSensitive:   map[string]bool{},
		CaseInsensitive: map[string]bool{},
	}

	for _, v := range yamlBl.CaseSensitive {
		res.CaseSensitive[v] = true
	}
	for _, v := range yamlBl.CaseInsensitive {
		res.CaseInsensitive[text.Fold(v)] = true
	}

	return &res, nil
}
