// Copyright 2025 Google LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package modelbench

import (
	"fmt"
	"strings"
)

// Locale scopes a benchmark to one language/region. The canonical form is
// lowercase ("en_us"); ParseLocale accepts the conventional mixed-case
// spelling ("en_US") as well.
type Locale string

const (
	LocaleEnUS Locale = "en_us"
	LocaleFrFR Locale = "fr_fr"
	LocaleZhCN Locale = "zh_cn"
	LocaleHiIN Locale = "hi_in"
)

// Locales returns all supported locales.
func Locales() []Locale {
	return []Locale{LocaleEnUS, LocaleFrFR, LocaleZhCN, LocaleHiIN}
}

// ParseLocale normalizes and validates a locale string.
func ParseLocale(s string) (Locale, error) {
	l := Locale(strings.ToLower(s))
	for _, known := range Locales() {
		if l == known {
			return l, nil
		}
	}
	return "", fmt.Errorf("modelbench: unsupported locale %q", s)
}

func (l Locale) String() string {
	return string(l)
}

// PromptSet selects which prompt corpus a benchmark draws from.
type PromptSet string

const (
	PromptSetPractice PromptSet = "practice"
	PromptSetOfficial PromptSet = "official"
	PromptSetDemo     PromptSet = "demo"
)

// PromptSets returns all supported prompt sets.
func PromptSets() []PromptSet {
	return []PromptSet{PromptSetPractice, PromptSetOfficial, PromptSetDemo}
}

// ParsePromptSet validates a prompt set name.
func ParsePromptSet(s string) (PromptSet, error) {
	ps := PromptSet(strings.ToLower(s))
	for _, known := range PromptSets() {
		if ps == known {
			return ps, nil
		}
	}
	return "", fmt.Errorf("modelbench: unsupported prompt set %q", s)
}

func (ps PromptSet) String() string {
	return string(ps)
}
