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

package agentconfig

import "strings"

// Known domains drive prompt templating and the default tool set
// assigned to an agent at creation time.
const (
	DomainHealthcare  = "healthcare"
	DomainHospitality = "hospitality"
	DomainRetail      = "retail"
	DomainRealEstate  = "real_estate"
	DomainFinance     = "finance"
	DomainGeneral     = "general"
)

var domainKeywords = map[string][]string{
	DomainHealthcare:  {"clinic", "patient", "doctor", "appointment", "medical", "health"},
	DomainHospitality: {"hotel", "reservation", "guest", "restaurant", "booking", "room"},
	DomainRetail:      {"store", "product", "order", "shipping", "inventory", "shop"},
	DomainRealEstate:  {"property", "listing", "tenant", "lease", "realtor", "rent"},
	DomainFinance:     {"account", "loan", "payment", "invoice", "bank", "insurance"},
}

// DetectDomain auto-detects an agent's domain from its name, role,
// system prompt, and business type when config.domain is unset.
// It returns DomainGeneral when nothing matches.
func DetectDomain(name, role, systemPrompt, businessType string) string {
	haystack := strings.ToLower(strings.Join([]string{name, role, systemPrompt, businessType}, " "))

	best := DomainGeneral
	bestHits := 0
	for domain, keywords := range domainKeywords {
		hits := 0
		for _, kw := range keywords {
			if strings.Contains(haystack, kw) {
				hits++
			}
		}
		if hits > bestHits {
			bestHits = hits
			best = domain
		}
	}
	return best
}

// ResolveDomain returns agent.Domain if set, else the auto-detected
// domain.
func ResolveDomain(agent *Agent) string {
	if agent.Domain != "" {
		return agent.Domain
	}
	return DetectDomain(agent.Name, agent.Role, agent.SystemPrompt, agent.BusinessType)
}
