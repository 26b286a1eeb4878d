package license

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/Sumatoshi-tech/licensecount/pkg/installation"
)

// tallyPartitioned splits users into one partition per worker by user id and
// tallies the partitions concurrently. Results are merged only after every
// partition has finished.
func (c *Calculator) tallyPartitioned(
	ctx context.Context, groups map[int][]installation.Record,
) ([]UserDemand, error) {
	partitions := make([][]int, c.workers)

	for userID := range groups {
		p := partitionOf(userID, c.workers)
		partitions[p] = append(partitions[p], userID)
	}

	results := make([][]UserDemand, c.workers)

	g, gctx := errgroup.WithContext(ctx)

	for idx, users := range partitions {
		if len(users) == 0 {
			continue
		}

		g.Go(func() error {
			out := make([]UserDemand, 0, len(users))

			for _, userID := range users {
				out = append(out, demandOf(userID, groups[userID]))
			}

			if err := gctx.Err(); err != nil {
				return err
			}

			results[idx] = out

			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("tally partitions: %w", err)
	}

	c.logger.DebugContext(ctx, "partitioned tally finished", "partitions", c.workers, "users", len(groups))

	demands := make([]UserDemand, 0, len(groups))
	for _, part := range results {
		demands = append(demands, part...)
	}

	return demands, nil
}

func partitionOf(userID, partitions int) int {
	p := userID % partitions
	if p < 0 {
		p += partitions
	}

	return p
}
