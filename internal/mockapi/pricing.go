package mockapi

import (
	"maps"
	"math"
	"strconv"
)

// Estimate prices one component for a month with overrides applied over
// its defaults. The formulas are illustrative list prices, not a quote.
func Estimate(c Component, overrides map[string]any) float64 {
	cfg := maps.Clone(c.Config)
	if cfg == nil {
		cfg = map[string]any{}
	}
	maps.Copy(cfg, overrides)

	num := func(key string) float64 {
		v, _ := number(cfg[key])
		return v
	}
	rate := func(key string) float64 { return c.Pricing[key] }
	hourly := func() float64 {
		it, _ := cfg["instanceType"].(string)
		return rate(it)
	}

	var cost float64
	switch c.ID {
	case "aws-api-gateway":
		cost = num("requestsPerMonth") / 1e6 * rate("perMillionRequests")
	case "aws-lambda":
		requests := num("requestsPerMonth")
		gbSeconds := requests * (num("executionTimeMs") / 1000) * (num("memoryMB") / 1024)
		cost = requests/1e6*rate("perMillionRequests") + gbSeconds*rate("perGBSecond")
	case "aws-ec2":
		cost = hourly() * num("hoursPerMonth")
	case "aws-s3":
		cost = num("storageGB")*rate("perGBMonth") +
			num("requestsPerMonth")/1000*rate("perThousandRequests") +
			num("dataTransferGB")*rate("perGBTransfer")
	case "aws-rds":
		cost = hourly()*num("hoursPerMonth") + num("storageGB")*rate("perGBMonth")
	}
	return roundCents(cost)
}

func roundCents(v float64) float64 {
	return math.Round(v*100) / 100
}

// number reads a JSON number, or a numeric string typed into a form.
func number(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case string:
		f, err := strconv.ParseFloat(n, 64)
		return f, err == nil
	}
	return 0, false
}
