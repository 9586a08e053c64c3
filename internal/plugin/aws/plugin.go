// Package aws implements the AWS billable-resource scanner for costscan.
package aws

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/smithy-go"
	"github.com/google/btree"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
	"golang.org/x/sync/errgroup"

	"github.com/yairfalse/costscan/internal/filter"
	"github.com/yairfalse/costscan/pkg/resource"
)

// Defaults applied when Config leaves a field zero.
const (
	DefaultRegion       = "us-east-1"
	DefaultConcurrency  = 8
	DefaultCheckTimeout = 30 * time.Second
)

// ErrMalformedResponse wraps a panic raised while normalizing a response.
var ErrMalformedResponse = errors.New("malformed response")

// Observer receives per-check telemetry.
type Observer interface {
	StartSpan(ctx context.Context, name string) (context.Context, trace.Span)
	RecordCheck(ctx context.Context, res resource.CheckResult)
}

// Config holds AWS plugin configuration.
type Config struct {
	// Region is the home region used for region listing and global services.
	Region  string
	Profile string
	// Regions skips DescribeRegions when set.
	Regions []string
	// EKSRegions are the regions queried for EKS clusters.
	EKSRegions   []string
	Filter       *filter.Filter
	Concurrency  int
	CheckTimeout time.Duration
	RunID        string
	Observer     Observer
}

// Plugin implements the AWS scanner.
type Plugin struct {
	factory      ClientFactory
	regions      []string
	eksRegions   []string
	filter       *filter.Filter
	concurrency  int
	checkTimeout time.Duration
	runID        string
	observer     Observer
	logger       zerolog.Logger
}

// New loads the default AWS credential chain and creates a new AWS plugin.
func New(ctx context.Context, cfg Config) (*Plugin, error) {
	opts := []func(*config.LoadOptions) error{
		config.WithRetryMode(aws.RetryModeStandard),
	}
	if cfg.Region != "" {
		opts = append(opts, config.WithRegion(cfg.Region))
	}
	if cfg.Profile != "" {
		opts = append(opts, config.WithSharedConfigProfile(cfg.Profile))
	}

	awsCfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	if awsCfg.Region == "" {
		awsCfg.Region = DefaultRegion
	}

	return NewWithFactory(cfg, newSDKFactory(awsCfg)), nil
}

// NewWithFactory creates a plugin that takes its clients from factory.
func NewWithFactory(cfg Config, factory ClientFactory) *Plugin {
	p := &Plugin{
		factory:      factory,
		regions:      cfg.Regions,
		eksRegions:   cfg.EKSRegions,
		filter:       cfg.Filter,
		concurrency:  cfg.Concurrency,
		checkTimeout: cfg.CheckTimeout,
		runID:        cfg.RunID,
		observer:     cfg.Observer,
	}
	if len(p.eksRegions) == 0 {
		p.eksRegions = []string{DefaultRegion}
	}
	if p.concurrency < 1 {
		p.concurrency = DefaultConcurrency
	}
	if p.checkTimeout <= 0 {
		p.checkTimeout = DefaultCheckTimeout
	}
	if p.observer == nil {
		p.observer = noopObserver{}
	}

	logCtx := log.With().Str("plugin", "aws")
	if p.runID != "" {
		logCtx = logCtx.Str("run_id", p.runID)
	}
	p.logger = logCtx.Logger()
	return p
}

// Name returns the plugin identifier.
func (p *Plugin) Name() string {
	return "aws"
}

// Regions resolves the region set to scan. Configured regions win over
// DescribeRegions; excluded regions are dropped afterwards.
func (p *Plugin) Regions(ctx context.Context) ([]string, error) {
	regions := p.regions
	if len(regions) == 0 {
		listed, err := ListRegions(ctx, p.factory.Clients("").EC2)
		if err != nil {
			return nil, fmt.Errorf("list regions: %w", err)
		}
		regions = listed
	}
	return p.filter.Regions(regions), nil
}

// Scan resolves regions, runs every planned check and assembles the inventory.
// Only a region listing failure is returned as an error.
func (p *Plugin) Scan(ctx context.Context) (*resource.Inventory, error) {
	ctx, span := p.observer.StartSpan(ctx, "aws.scan")
	defer span.End()

	regions, err := p.Regions(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	if len(regions) == 0 {
		p.logger.Warn().Ctx(ctx).Msg("no regions left to scan after filtering")
	}

	inv := &resource.Inventory{
		RunID:   p.runID,
		Account: p.accountID(ctx),
		Regions: regions,
	}

	checks := p.plan(regions)
	p.logger.Info().
		Ctx(ctx).
		Str("account", inv.Account).
		Int("regions", len(regions)).
		Int("checks", len(checks)).
		Int("concurrency", p.concurrency).
		Msg("starting checks")

	inv.Checks = p.runChecks(ctx, checks)
	for _, c := range inv.Checks {
		inv.Records = append(inv.Records, c.Records...)
	}

	span.SetAttributes(
		attribute.Int("costscan.records", len(inv.Records)),
		attribute.Int("costscan.failed_checks", len(inv.Failed())),
	)
	return inv, nil
}

func (p *Plugin) accountID(ctx context.Context) string {
	ctx, cancel := context.WithTimeout(ctx, p.checkTimeout)
	defer cancel()

	id, err := getAccountID(ctx, p.factory.Clients("").STS)
	if err != nil {
		p.logger.Debug().Ctx(ctx).Err(err).Msg("account id unavailable")
		return "unknown"
	}
	return id
}

// check is one planned (service, region) listing.
type check struct {
	seq     int
	service resource.Service
	// region is the label written on records; scope is the client region.
	region string
	scope  string
	fn     scanFunc
}

// plan lists checks in report order: every regional service per region,
// then the global services once.
func (p *Plugin) plan(regions []string) []check {
	var checks []check
	add := func(s resource.Service, region, scope string) {
		if !p.filter.ShouldScanService(s) {
			return
		}
		checks = append(checks, check{
			seq:     len(checks),
			service: s,
			region:  region,
			scope:   scope,
			fn:      scanners[s],
		})
	}

	for _, region := range regions {
		for _, s := range resource.RegionalServices {
			add(s, region, region)
		}
	}
	for _, s := range resource.GlobalServices {
		if s == resource.ServiceEKS {
			for _, region := range p.eksRegions {
				add(s, region, region)
			}
			continue
		}
		add(s, resource.GlobalRegion, "")
	}
	return checks
}

type sequenced struct {
	seq    int
	result resource.CheckResult
}

// runChecks executes checks on a bounded pool. Results come back in plan
// order whatever the completion order was.
func (p *Plugin) runChecks(ctx context.Context, checks []check) []resource.CheckResult {
	var (
		mu      sync.Mutex
		results = btree.NewG(16, func(a, b sequenced) bool { return a.seq < b.seq })
		g       errgroup.Group
	)
	g.SetLimit(p.concurrency)

	for _, c := range checks {
		c := c
		g.Go(func() error {
			res := p.runCheck(ctx, c)
			mu.Lock()
			results.ReplaceOrInsert(sequenced{seq: c.seq, result: res})
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	out := make([]resource.CheckResult, 0, results.Len())
	results.Ascend(func(s sequenced) bool {
		out = append(out, s.result)
		return true
	})
	return out
}

// runCheck runs one check under its own timeout. Errors and panics are
// captured in the result, never propagated.
func (p *Plugin) runCheck(ctx context.Context, c check) (res resource.CheckResult) {
	start := time.Now()
	res = resource.CheckResult{Service: c.service, Region: c.region}

	ctx, cancel := context.WithTimeout(ctx, p.checkTimeout)
	defer cancel()
	ctx, span := p.observer.StartSpan(ctx, "aws.check")
	span.SetAttributes(
		attribute.String("costscan.service", string(c.service)),
		attribute.String("costscan.region", c.region),
	)

	defer func() {
		if r := recover(); r != nil {
			res.Records = nil
			res.Err = fmt.Errorf("%w: %v", ErrMalformedResponse, r)
		}
		res.Duration = time.Since(start)
		p.report(ctx, span, res)
		span.End()
	}()

	records, err := c.fn(ctx, p.factory.Clients(c.scope), c.region)
	if err != nil {
		res.Err = err
		return res
	}
	res.Records = p.validRecords(ctx, records)
	return res
}

func (p *Plugin) validRecords(ctx context.Context, records []resource.Record) []resource.Record {
	valid := make([]resource.Record, 0, len(records))
	for _, r := range records {
		if !r.Valid() {
			p.logger.Debug().
				Ctx(ctx).
				Str("service", string(r.Service)).
				Str("region", r.Region).
				Msg("dropping record with missing fields")
			continue
		}
		valid = append(valid, r)
	}
	return valid
}

func (p *Plugin) report(ctx context.Context, span trace.Span, res resource.CheckResult) {
	p.observer.RecordCheck(ctx, res)

	if res.Failed() {
		span.RecordError(res.Err)
		span.SetStatus(codes.Error, ErrorCode(res.Err))
		p.logger.Warn().
			Ctx(ctx).
			Err(res.Err).
			Str("service", string(res.Service)).
			Str("region", res.Region).
			Str("error_code", ErrorCode(res.Err)).
			Dur("duration", res.Duration).
			Msg("check failed")
		return
	}

	span.SetAttributes(attribute.Int("costscan.records", len(res.Records)))
	p.logger.Debug().
		Ctx(ctx).
		Str("service", string(res.Service)).
		Str("region", res.Region).
		Int("count", len(res.Records)).
		Dur("duration", res.Duration).
		Msg("check complete")
}

// ErrorCode summarizes a check failure: the AWS API error code when there
// is one, otherwise a coarse category.
func ErrorCode(err error) string {
	var apiErr smithy.APIError
	switch {
	case err == nil:
		return ""
	case errors.As(err, &apiErr):
		return apiErr.ErrorCode()
	case errors.Is(err, context.DeadlineExceeded):
		return "Timeout"
	case errors.Is(err, context.Canceled):
		return "Canceled"
	case errors.Is(err, ErrMalformedResponse):
		return "MalformedResponse"
	default:
		return "Unknown"
	}
}

type noopObserver struct{}

func (noopObserver) StartSpan(ctx context.Context, name string) (context.Context, trace.Span) {
	return noop.NewTracerProvider().Tracer("").Start(ctx, name)
}

func (noopObserver) RecordCheck(context.Context, resource.CheckResult) {}
