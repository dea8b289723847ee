package eval

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// MissingModels probes every model concurrently and returns the unavailable
// ones in input order, deduplicated. A non-empty result is a precondition
// failure: callers skip the run instead of failing it.
func MissingModels(ctx context.Context, prober Prober, models []string) []string {
	seen := make(map[string]struct{}, len(models))
	var unique []string
	for _, m := range models {
		if _, ok := seen[m]; ok {
			continue
		}
		seen[m] = struct{}{}
		unique = append(unique, m)
	}

	available := make([]bool, len(unique))
	g, ctx := errgroup.WithContext(ctx)
	for i, model := range unique {
		g.Go(func() error {
			available[i] = prober.EnsureModel(ctx, model)
			return nil
		})
	}
	_ = g.Wait()

	var missing []string
	for i, ok := range available {
		if !ok {
			missing = append(missing, unique[i])
		}
	}
	return missing
}
