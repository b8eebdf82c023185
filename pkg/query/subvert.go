// Copyright 2025 walteh LLC
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

package query

import (
	"regexp"
	"sort"
	"strings"

	"github.com/iancoleman/strcase"
	"gitlab.com/tozd/go/errors"
)

// caseConverters is ordered: when two converters produce the same form of the
// pattern, the first one decides which replacement form is used.
var caseConverters = []struct {
	name    string
	convert func(string) string
}{
	{"snake", strcase.ToSnake},
	{"screaming_snake", strcase.ToScreamingSnake},
	{"kebab", strcase.ToKebab},
	{"screaming_kebab", strcase.ToScreamingKebab},
	{"pascal", strcase.ToCamel},
	{"camel", strcase.ToLowerCamel},
}

// Variants returns every case form of s, in converter order, without duplicates.
func Variants(s string) []string {
	seen := map[string]bool{}
	out := make([]string, 0, len(caseConverters))
	for _, c := range caseConverters {
		v := c.convert(s)
		if v == "" || seen[v] {
			continue
		}
		seen[v] = true
		out = append(out, v)
	}
	return out
}

// compileVariants pairs each case form of pattern with the same form of replacement
// and builds one alternation matching any of them, longest first.
func compileVariants(pattern, replacement string, word bool) (map[string]string, *regexp.Regexp, error) {
	variants := map[string]string{}
	for _, c := range caseConverters {
		from := c.convert(pattern)
		if from == "" {
			continue
		}
		if _, ok := variants[from]; ok {
			continue
		}
		variants[from] = c.convert(replacement)
	}
	if len(variants) == 0 {
		return nil, nil, errors.Errorf("pattern has no letters or digits to convert")
	}

	keys := make([]string, 0, len(variants))
	for k := range variants {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if len(keys[i]) != len(keys[j]) {
			return len(keys[i]) > len(keys[j])
		}
		return keys[i] < keys[j]
	})

	quoted := make([]string, len(keys))
	for i, k := range keys {
		quoted[i] = regexp.QuoteMeta(k)
	}
	expr := `(?:` + strings.Join(quoted, "|") + `)`
	if word {
		expr = `\b` + expr + `\b`
	}

	re, err := regexp.Compile(expr)
	if err != nil {
		return nil, nil, errors.Errorf("compiling variants: %w", err)
	}
	return variants, re, nil
}
