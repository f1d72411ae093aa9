package routing

import (
	"sort"
	"strings"
)

type RouteClass string

const (
	RouteClassPage   RouteClass = "page"
	RouteClassAPI    RouteClass = "api"
	RouteClassAuthn  RouteClass = "authn"
	RouteClassOps    RouteClass = "ops"
	RouteClassStatic RouteClass = "static"
)

type Rule struct {
	Prefix string     `yaml:"prefix"`
	Class  RouteClass `yaml:"class"`
}

// DefaultRules classify the routes registered by the portal server.
var DefaultRules = []Rule{
	{Prefix: "/login", Class: RouteClassAuthn},
	{Prefix: "/signup", Class: RouteClassAuthn},
	{Prefix: "/auth", Class: RouteClassAuthn},
	{Prefix: "/account", Class: RouteClassAPI},
	{Prefix: "/logs", Class: RouteClassAPI},
	{Prefix: "/api", Class: RouteClassAPI},
	{Prefix: "/health", Class: RouteClassOps},
	{Prefix: "/debug/prometheus", Class: RouteClassOps},
	{Prefix: "/static", Class: RouteClassStatic},
	{Prefix: "/_next", Class: RouteClassStatic},
}

type Classifier struct {
	rules []Rule
}

func NewClassifier(rules []Rule) *Classifier {
	copied := make([]Rule, 0, len(rules))
	for _, rule := range rules {
		rule.Prefix = strings.TrimSpace(rule.Prefix)
		if rule.Prefix == "" {
			continue
		}
		copied = append(copied, rule)
	}

	sort.SliceStable(copied, func(i, j int) bool {
		return len(copied[i].Prefix) > len(copied[j].Prefix)
	})

	return &Classifier{
		rules: copied,
	}
}

func (c *Classifier) ClassifyPath(path string) RouteClass {
	for _, rule := range c.rules {
		if HasPathPrefixOnBoundary(path, rule.Prefix) {
			return rule.Class
		}
	}
	return RouteClassPage
}

// WantsJSON reports whether errors on path should be rendered as JSON.
func (c *Classifier) WantsJSON(path string) bool {
	switch c.ClassifyPath(path) {
	case RouteClassAPI, RouteClassAuthn, RouteClassOps:
		return true
	}
	return false
}

func HasPathPrefixOnBoundary(path, prefix string) bool {
	if prefix == "" {
		return false
	}

	if prefix == "/" {
		return strings.HasPrefix(path, "/")
	}

	if !strings.HasPrefix(path, prefix) {
		return false
	}

	if len(path) == len(prefix) {
		return true
	}

	if strings.HasSuffix(prefix, "/") {
		return true
	}

	return path[len(prefix)] == '/'
}
