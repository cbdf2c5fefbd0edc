// SPDX-License-Identifier: AGPL-3.0
// Copyright 2025 Kadir Pekel
//
// Licensed under the GNU Affero General Public License v3.0 (AGPL-3.0) (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     https://www.gnu.org/licenses/agpl-3.0.en.html
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package config

import (
	"os"
	"regexp"
	"strings"
)

// Follows pkg/config/env.go's approach: supports ${VAR},
// ${VAR:-default}, and bare $VAR substitution in YAML string values so
// secrets (API keys, DSNs) never need to be committed to a config file.
var (
	withDefaultPattern = regexp.MustCompile(`\$\{([A-Z_][A-Z0-9_]*):-(.*?)\}`)
	bracedPattern      = regexp.MustCompile(`\$\{([A-Z_][A-Z0-9_]*)\}`)
	simplePattern      = regexp.MustCompile(`\$([A-Z_][A-Z0-9_]*)`)
)

func expandEnvVars(s string) string {
	if !strings.Contains(s, "$") {
		return s
	}

	s = withDefaultPattern.ReplaceAllStringFunc(s, func(match string) string {
		parts := withDefaultPattern.FindStringSubmatch(match)
		if val := os.Getenv(parts[1]); val != "" {
			return val
		}
		return parts[2]
	})

	s = bracedPattern.ReplaceAllStringFunc(s, func(match string) string {
		parts := bracedPattern.FindStringSubmatch(match)
		return os.Getenv(parts[1])
	})

	s = simplePattern.ReplaceAllStringFunc(s, func(match string) string {
		parts := simplePattern.FindStringSubmatch(match)
		return os.Getenv(parts[1])
	})

	return s
}

// expand substitutes environment variables in place in the loaded
// Config's secret- and endpoint-bearing string fields (database DSN,
// API keys, vector store host, STT URL, integration webhook URLs and
// headers); other fields are left as written. Called once, right after
// YAML unmarshaling.
func (c *Config) expand() {
	c.Database.DSN = expandEnvVars(c.Database.DSN)
	c.Embedder.APIKey = expandEnvVars(c.Embedder.APIKey)
	c.VectorStore.APIKey = expandEnvVars(c.VectorStore.APIKey)
	c.VectorStore.Host = expandEnvVars(c.VectorStore.Host)
	c.STT.APIKey = expandEnvVars(c.STT.APIKey)
	c.STT.WebSocketURL = expandEnvVars(c.STT.WebSocketURL)
	for i := range c.Integrations {
		c.Integrations[i].WebhookURL = expandEnvVars(c.Integrations[i].WebhookURL)
		for k, v := range c.Integrations[i].Headers {
			c.Integrations[i].Headers[k] = expandEnvVars(v)
		}
	}
}
