package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

var palette = []ComponentDefinition{
	{ID: "aws-api-gateway", Name: "API Gateway", Category: "Networking", Description: "Managed REST endpoints"},
	{ID: "aws-lambda", Name: "Lambda", Category: "Compute"},
	{ID: "aws-rds", Name: "RDS", Category: "Database", Description: "Managed Postgres"},
	{ID: "aws-s3", Name: "S3", Category: "Storage"},
	{ID: "aws-sqs", Name: "SQS", Category: "Messaging"},
}

func names(defs []ComponentDefinition) []string {
	out := make([]string, len(defs))
	for i, d := range defs {
		out[i] = d.Name
	}
	return out
}

func TestFilter(t *testing.T) {
	tests := []struct {
		category, query string
		want            []string
	}{
		{"All", "", []string{"API Gateway", "Lambda", "RDS", "S3", "SQS"}},
		{"", "", []string{"API Gateway", "Lambda", "RDS", "S3", "SQS"}},
		{"Compute", "", []string{"Lambda", "SQS"}},
		{"compute", "sqs", []string{"SQS"}},
		{"All", "managed", []string{"API Gateway", "RDS"}},
		{"API", "", []string{}},
		{"Storage", "lambda", []string{}},
	}
	for _, tt := range tests {
		got := names(Filter(palette, tt.category, tt.query))
		assert.Equal(t, tt.want, got, "category=%q query=%q", tt.category, tt.query)
	}
}

func TestSummary(t *testing.T) {
	assert.Equal(t, "2 vCPU, 4GB RAM", Summary(ComponentDefinition{ID: "aws-ec2", Config: map[string]any{"instanceType": "t3.medium"}}))
	assert.Equal(t, "2 vCPU, 1GB RAM", Summary(ComponentDefinition{ID: "aws-ec2"}))
	assert.Equal(t, "Object storage", Summary(ComponentDefinition{ID: "aws-s3"}))
	assert.Equal(t, "Queue", Summary(ComponentDefinition{ID: "x", Description: "Queue"}))
	assert.Equal(t, "Cloud component", Summary(ComponentDefinition{ID: "x"}))
}

func TestEstimate(t *testing.T) {
	ec2 := ComponentDefinition{
		ID:      "aws-ec2",
		Config:  map[string]any{"instanceType": "t3.micro", "hoursPerMonth": float64(730)},
		Pricing: map[string]float64{"t3.micro": 0.0104},
	}
	assert.Equal(t, "$8/mo", Estimate(ec2))

	gw := ComponentDefinition{ID: "aws-api-gateway", Pricing: map[string]float64{"perMillionRequests": 3.5}}
	assert.Equal(t, "$4/mo", Estimate(gw))

	assert.Equal(t, "$12/mo", Estimate(ComponentDefinition{ID: "aws-rds"}))
	assert.Equal(t, "$0/mo", Estimate(ComponentDefinition{ID: "unknown"}))
}
