// Package resource defines the normalized inventory model for costscan.
package resource

import "time"

// GlobalRegion marks records for services that are not partitioned by region.
const GlobalRegion = "Global"

// Service identifies a tracked resource family. The string value is what
// appears in the Service column of every report.
type Service string

// Tracked services.
const (
	ServiceEC2         Service = "EC2"
	ServiceEBS         Service = "EBS"
	ServiceElasticIP   Service = "ElasticIP"
	ServiceELB         Service = "LoadBalancer"
	ServiceRDS         Service = "RDS"
	ServiceElastiCache Service = "ElastiCache"
	ServiceDynamoDB    Service = "DynamoDB"
	ServiceNATGateway  Service = "NAT Gateway"
	ServiceS3          Service = "S3"
	ServiceCloudFront  Service = "CloudFront"
	ServiceEKS         Service = "EKS"
)

// RegionalServices are checked once per region, in this order.
var RegionalServices = []Service{
	ServiceEC2,
	ServiceEBS,
	ServiceElasticIP,
	ServiceELB,
	ServiceRDS,
	ServiceElastiCache,
	ServiceDynamoDB,
	ServiceNATGateway,
}

// GlobalServices are checked exactly once per run, after all regions.
// EKS is region-scoped in AWS but is listed here because it is queried
// against a fixed region set rather than the scanned regions.
var GlobalServices = []Service{
	ServiceS3,
	ServiceCloudFront,
	ServiceEKS,
}

// Regional reports whether the service is checked once per scanned region.
func (s Service) Regional() bool {
	for _, r := range RegionalServices {
		if r == s {
			return true
		}
	}
	return false
}

// AllServices returns every tracked service in check order.
func AllServices() []Service {
	all := make([]Service, 0, len(RegionalServices)+len(GlobalServices))
	all = append(all, RegionalServices...)
	return append(all, GlobalServices...)
}

// ParseService resolves a service by its report name, case-sensitively first
// and then by the lowercase aliases accepted on the command line.
func ParseService(name string) (Service, bool) {
	for _, s := range AllServices() {
		if string(s) == name {
			return s, true
		}
	}
	s, ok := serviceAliases[name]
	return s, ok
}

var serviceAliases = map[string]Service{
	"ec2":         ServiceEC2,
	"ebs":         ServiceEBS,
	"eip":         ServiceElasticIP,
	"elastic_ip":  ServiceElasticIP,
	"elb":         ServiceELB,
	"rds":         ServiceRDS,
	"elasticache": ServiceElastiCache,
	"dynamodb":    ServiceDynamoDB,
	"nat_gateway": ServiceNATGateway,
	"s3":          ServiceS3,
	"cloudfront":  ServiceCloudFront,
	"eks":         ServiceEKS,
}

// Record is one billable resource in normalized form.
type Record struct {
	Service    Service `json:"service"`
	ResourceID string  `json:"resource_id"`
	Region     string  `json:"region"`
	Details    string  `json:"details"`
}

// Valid reports whether the record carries every mandatory field.
func (r Record) Valid() bool {
	return r.Service != "" && r.ResourceID != "" && r.Region != ""
}

// Row returns the record as table cells in export column order.
func (r Record) Row() []string {
	return []string{string(r.Service), r.ResourceID, r.Region, r.Details}
}

// Columns is the header row shared by every table export.
var Columns = []string{"Service", "ResourceId", "Region", "Details"}

// CheckResult is the outcome of one (service, region) listing call.
// Exactly one of Records or Err is meaningful.
type CheckResult struct {
	Service  Service
	Region   string
	Records  []Record
	Err      error
	Duration time.Duration
}

// Failed reports whether the check returned an error.
func (c CheckResult) Failed() bool {
	return c.Err != nil
}

// Inventory is everything a single run collected.
type Inventory struct {
	RunID   string
	Account string
	// Regions is the scanned region set in iteration order.
	Regions []string
	// Records are ordered by region, then service check order, then global services.
	Records []Record
	Checks  []CheckResult
}

// Failed returns the checks that errored.
func (inv *Inventory) Failed() []CheckResult {
	var failed []CheckResult
	for _, c := range inv.Checks {
		if c.Failed() {
			failed = append(failed, c)
		}
	}
	return failed
}

// ScanResult holds the result of a plugin scan, handed to emitters.
type ScanResult struct {
	Provider  string
	Inventory *Inventory
	Duration  time.Duration
	Error     error
}
