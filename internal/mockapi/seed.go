package mockapi

// DefaultComponents is the catalog the mock backend starts with.
func DefaultComponents() []Component {
	return []Component{
		{
			ID:          "aws-api-gateway",
			Name:        "API Gateway",
			Provider:    "AWS",
			Category:    "Networking",
			Config:      map[string]any{"requestsPerMonth": 1000000},
			Pricing:     map[string]float64{"perMillionRequests": 3.50},
			Icon:        "api-gateway",
			Description: "Amazon API Gateway is a fully managed service that makes it easy for developers to create, publish, maintain, monitor, and secure APIs.",
		},
		{
			ID:       "aws-lambda",
			Name:     "Lambda",
			Provider: "AWS",
			Category: "Compute",
			Config: map[string]any{
				"requestsPerMonth": 1000000,
				"memoryMB":         512,
				"executionTimeMs":  100,
			},
			Pricing:     map[string]float64{"perMillionRequests": 0.20, "perGBSecond": 0.0000166667},
			Icon:        "lambda",
			Description: "Run code without provisioning or managing servers.",
		},
		{
			ID:       "aws-ec2",
			Name:     "EC2",
			Provider: "AWS",
			Category: "Compute",
			Config: map[string]any{
				"instanceType":  "t3.micro",
				"hoursPerMonth": 730,
			},
			Pricing:     map[string]float64{"t3.micro": 0.0104, "t3.small": 0.0208, "t3.medium": 0.0416},
			Icon:        "ec2",
			Description: "Resizable virtual machines in the cloud.",
		},
		{
			ID:       "aws-s3",
			Name:     "S3",
			Provider: "AWS",
			Category: "Storage",
			Config: map[string]any{
				"storageGB":        100,
				"requestsPerMonth": 100000,
				"dataTransferGB":   10,
			},
			Pricing:     map[string]float64{"perGBMonth": 0.023, "perThousandRequests": 0.0004, "perGBTransfer": 0.09},
			Icon:        "s3",
			Description: "Object storage built to retrieve any amount of data from anywhere.",
		},
		{
			ID:       "aws-rds",
			Name:     "RDS",
			Provider: "AWS",
			Category: "Database",
			Config: map[string]any{
				"instanceType":  "db.t3.micro",
				"storageGB":     20,
				"hoursPerMonth": 730,
			},
			Pricing:     map[string]float64{"db.t3.micro": 0.017, "db.t3.small": 0.034, "perGBMonth": 0.115},
			Icon:        "rds",
			Description: "Managed relational databases.",
		},
	}
}
