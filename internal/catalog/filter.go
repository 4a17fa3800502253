package catalog

import (
	"fmt"
	"math"
	"strings"
)

// Categories are the tabs of the component palette, in display order.
var Categories = []string{"All", "API", "Compute", "Database", "Storage", "Networking"}

// CategoryOf buckets a definition into a palette tab. Categories the
// palette does not know land in Compute.
func CategoryOf(d ComponentDefinition) string {
	switch d.Category {
	case "Networking", "Compute", "Database", "Storage":
		return d.Category
	}
	return "Compute"
}

// Filter returns the definitions in category whose name or description
// contains query, case-insensitively. "All" or "" match every category.
func Filter(defs []ComponentDefinition, category, query string) []ComponentDefinition {
	q := strings.ToLower(strings.TrimSpace(query))
	out := make([]ComponentDefinition, 0, len(defs))
	for _, d := range defs {
		if category != "" && !strings.EqualFold(category, "All") && !strings.EqualFold(CategoryOf(d), category) {
			continue
		}
		if q != "" &&
			!strings.Contains(strings.ToLower(d.Name), q) &&
			!strings.Contains(strings.ToLower(d.Description), q) {
			continue
		}
		out = append(out, d)
	}
	return out
}

var ec2Specs = map[string]string{
	"t3.micro":  "2 vCPU, 1GB RAM",
	"t3.small":  "2 vCPU, 2GB RAM",
	"t3.medium": "2 vCPU, 4GB RAM",
}

// Summary is the one-line sizing blurb shown under a palette entry.
func Summary(d ComponentDefinition) string {
	switch d.ID {
	case "aws-ec2":
		it, _ := d.Config["instanceType"].(string)
		if s, ok := ec2Specs[it]; ok {
			return s
		}
		return ec2Specs["t3.micro"]
	case "aws-lambda":
		return "Serverless functions"
	case "aws-rds":
		return "Managed database"
	case "aws-s3":
		return "Object storage"
	case "aws-api-gateway":
		return "API management"
	}
	if d.Description != "" {
		return d.Description
	}
	return "Cloud component"
}

// Estimate is the rough monthly price shown in the palette, computed from
// the definition's defaults. It is a hint, not a quote.
func Estimate(d ComponentDefinition) string {
	num := func(key string, def float64) float64 {
		if v, ok := toFloat(d.Config[key]); ok && v != 0 {
			return v
		}
		return def
	}
	hourly := func(def string, rate float64) float64 {
		it, _ := d.Config["instanceType"].(string)
		if it == "" {
			it = def
		}
		if r, ok := d.Pricing[it]; ok && r != 0 {
			return r
		}
		return rate
	}

	switch d.ID {
	case "aws-api-gateway":
		return fmt.Sprintf("$%.0f/mo", num("requestsPerMonth", 1_000_000)/1_000_000*d.Pricing["perMillionRequests"])
	case "aws-lambda":
		return "$50/mo"
	case "aws-ec2":
		return fmt.Sprintf("$%.0f/mo", math.Round(num("hoursPerMonth", 730)*hourly("t3.micro", 0.0104)))
	case "aws-s3":
		return "$25/mo"
	case "aws-rds":
		return fmt.Sprintf("$%.0f/mo", math.Round(num("hoursPerMonth", 730)*hourly("db.t3.micro", 0.017)))
	}
	return "$0/mo"
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	}
	return 0, false
}
