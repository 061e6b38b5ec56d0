// Package allowlist decides which outbound URLs a workflow may reach. The
// rule list comes from a domain-list collaborator; hosts match a rule
// exactly or as a subdomain on a dot boundary. An empty rule list means the
// policy is open and every URL is admitted.
package allowlist

import (
	"net/url"
	"sort"
	"strings"

	"github.com/hrflow/hrflow/audit"
	"github.com/hrflow/hrflow/model"
)

const REASON_BLOCKED = "not in allow-list"
const REASON_MALFORMED = "malformed url"

type Denial struct {
	NodeId int64  `json:"nodeId"`
	URL    string `json:"url"`
	Reason string `json:"reason"`
}

type DomainSource interface {
	Domains() []string
}

type Validator struct {
	source DomainSource
}

func NewValidator(source DomainSource) *Validator {
	return &Validator{source: source}
}

// Validate checks every URL carried by the workflow's nodes against the
// configured domain rules. Each denial is audit-logged. A nil result means
// the workflow is clear to compile.
func (v *Validator) Validate(wf *model.Workflow) []Denial {
	rules := normalizeRules(v.source.Domains())
	if len(rules) == 0 {
		return nil
	}
	var denials []Denial
	for _, node := range wf.Nodes {
		for _, raw := range ExtractURLs(node) {
			host := hostOf(raw)
			if host == "" {
				denials = append(denials, Denial{NodeId: node.Id, URL: raw, Reason: REASON_MALFORMED})
				continue
			}
			if !hostAllowed(host, rules) {
				denials = append(denials, Denial{NodeId: node.Id, URL: raw, Reason: REASON_BLOCKED})
			}
		}
	}
	for _, d := range denials {
		audit.RecordPolicyDenial(wf.Name, wf.Id, d.NodeId, d.URL, d.Reason)
	}
	return denials
}

// ExtractURLs pulls the URL-bearing config values out of a node: the target
// of an http node, the source document of a url-mode cv_parse node, and any
// other string field that carries a recognized scheme. Order is stable so
// repeated validation reports denials identically.
func ExtractURLs(node model.WorkflowNode) []string {
	var urls []string
	seen := make(map[string]bool)
	add := func(u string) {
		u = strings.TrimSpace(u)
		if u == "" || seen[u] {
			return
		}
		seen[u] = true
		urls = append(urls, u)
	}
	primary := ""
	switch node.Kind {
	case model.KIND_HTTP:
		primary = "url"
	case model.KIND_CV_PARSE:
		primary = "sourceUrl"
	}
	if primary != "" && node.Config.Has(primary) {
		add(node.Config.GetString(primary))
	}
	keys := make([]string, 0, len(node.Config))
	for k := range node.Config {
		if k == primary {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		s, ok := node.Config[k].(string)
		if !ok {
			continue
		}
		s = strings.TrimSpace(s)
		if strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://") {
			add(s)
		}
	}
	return urls
}

func hostOf(raw string) string {
	parsed, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	return strings.ToLower(parsed.Hostname())
}

func hostAllowed(host string, rules []string) bool {
	for _, rule := range rules {
		if host == rule || strings.HasSuffix(host, "."+rule) {
			return true
		}
	}
	return false
}

func normalizeRules(domains []string) []string {
	rules := make([]string, 0, len(domains))
	for _, d := range domains {
		r := strings.ToLower(strings.TrimSpace(d))
		r = strings.TrimPrefix(r, ".")
		if r != "" {
			rules = append(rules, r)
		}
	}
	return rules
}
