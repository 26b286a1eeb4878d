// Package license computes the minimum number of application licenses needed
// to cover a set of installations, where one laptop and one desktop of the
// same user share a single license.
package license

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"slices"

	"github.com/Sumatoshi-tech/licensecount/pkg/installation"
)

// ErrInvalidArgument indicates a missing record set or dependency.
var ErrInvalidArgument = errors.New("invalid argument")

// DefaultParallelThreshold is the number of distinct users from which the
// per-user tally is split across workers.
const DefaultParallelThreshold = 10000

// UserDemand is the license need of one user for the target application.
type UserDemand struct {
	UserID   int `json:"user_id"  yaml:"user_id"`
	Laptops  int `json:"laptops"  yaml:"laptops"`
	Desktops int `json:"desktops" yaml:"desktops"`
	Others   int `json:"others"   yaml:"others"`
	Licenses int `json:"licenses" yaml:"licenses"`
}

// Result is a completed calculation.
type Result struct {
	// ApplicationID is the target application.
	ApplicationID int `json:"application_id" yaml:"application_id"`
	// Records is the number of records given to the calculator.
	Records int `json:"records" yaml:"records"`
	// Matched is the number of records for the target application.
	Matched int `json:"matched" yaml:"matched"`
	// Total is the minimum number of licenses.
	Total int `json:"total" yaml:"total"`
	// Users holds the per-user breakdown, ordered by user id.
	Users []UserDemand `json:"users" yaml:"users"`
}

// Option configures a Calculator.
type Option func(*Calculator)

// WithWorkers sets the number of partitions used for large inputs.
// Values below one select GOMAXPROCS.
func WithWorkers(workers int) Option {
	return func(c *Calculator) {
		c.workers = workers
	}
}

// WithParallelThreshold sets the distinct-user count from which the tally is
// partitioned. Values below one disable partitioning.
func WithParallelThreshold(users int) Option {
	return func(c *Calculator) {
		c.parallelThreshold = users
	}
}

// Calculator computes license demand for one target application.
type Calculator struct {
	logger            *slog.Logger
	applicationID     int
	workers           int
	parallelThreshold int
}

// NewCalculator creates a Calculator for the given target application.
func NewCalculator(logger *slog.Logger, applicationID int, opts ...Option) (*Calculator, error) {
	if logger == nil {
		return nil, fmt.Errorf("%w: logger is nil", ErrInvalidArgument)
	}

	c := &Calculator{
		logger:            logger,
		applicationID:     applicationID,
		parallelThreshold: DefaultParallelThreshold,
	}

	for _, opt := range opts {
		opt(c)
	}

	if c.workers < 1 {
		c.workers = runtime.GOMAXPROCS(0)
	}

	return c, nil
}

// ApplicationID returns the target application.
func (c *Calculator) ApplicationID() int {
	return c.applicationID
}

// CalculateMinimumLicenses returns the minimum number of licenses required
// for the target application. An empty record set yields zero; a nil one is
// rejected.
func (c *Calculator) CalculateMinimumLicenses(ctx context.Context, records []installation.Record) (int, error) {
	res, err := c.Calculate(ctx, records)
	if err != nil {
		return 0, err
	}

	return res.Total, nil
}

// Calculate returns the license total with its per-user breakdown.
func (c *Calculator) Calculate(ctx context.Context, records []installation.Record) (*Result, error) {
	if records == nil {
		err := fmt.Errorf("%w: records are nil", ErrInvalidArgument)
		c.logger.ErrorContext(ctx, "calculation rejected", "error", err)

		return nil, err
	}

	c.logger.InfoContext(ctx, "starting calculation of minimum licenses",
		"application_id", c.applicationID, "records", len(records))

	res := &Result{
		ApplicationID: c.applicationID,
		Records:       len(records),
		Users:         []UserDemand{},
	}

	if len(records) == 0 {
		c.logger.InfoContext(ctx, "no records found")

		return res, nil
	}

	groups, matched := groupByUser(records, c.applicationID)
	res.Matched = matched

	var (
		demands []UserDemand
		err     error
	)

	if c.parallelThreshold > 0 && len(groups) >= c.parallelThreshold && c.workers > 1 {
		demands, err = c.tallyPartitioned(ctx, groups)
		if err != nil {
			c.logger.ErrorContext(ctx, "calculation failed", "error", err)

			return nil, err
		}
	} else {
		demands = tally(groups)
	}

	slices.SortFunc(demands, func(a, b UserDemand) int {
		return cmp.Compare(a.UserID, b.UserID)
	})

	for _, d := range demands {
		res.Total += d.Licenses
	}

	res.Users = demands

	c.logger.InfoContext(ctx, "calculation completed",
		"application_id", c.applicationID,
		"users", len(demands),
		"licenses", res.Total)

	return res, nil
}

// groupByUser collects the target application's records per user.
func groupByUser(records []installation.Record, applicationID int) (map[int][]installation.Record, int) {
	groups := make(map[int][]installation.Record)
	matched := 0

	for _, rec := range records {
		if rec.ApplicationID != applicationID {
			continue
		}

		groups[rec.UserID] = append(groups[rec.UserID], rec)
		matched++
	}

	return groups, matched
}

func tally(groups map[int][]installation.Record) []UserDemand {
	demands := make([]UserDemand, 0, len(groups))

	for userID, recs := range groups {
		demands = append(demands, demandOf(userID, recs))
	}

	return demands
}

// demandOf applies the coverage rule to one user's installations.
func demandOf(userID int, recs []installation.Record) UserDemand {
	d := UserDemand{UserID: userID}

	for _, rec := range recs {
		switch rec.Category() {
		case installation.CategoryLaptop:
			d.Laptops++
		case installation.CategoryDesktop:
			d.Desktops++
		case installation.CategoryOther:
			d.Others++
		}
	}

	d.Licenses = Licenses(d.Laptops, d.Desktops)

	return d
}

// Licenses returns the number of licenses one user needs for the given
// device counts. Each laptop covers one desktop; unpaired devices of either
// kind need their own license.
func Licenses(laptops, desktops int) int {
	switch {
	case laptops > 0 && desktops > 0:
		return max(laptops, desktops)
	case laptops > 0:
		return laptops
	default:
		return desktops
	}
}
