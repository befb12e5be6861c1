package framesim

import (
	"context"
	"fmt"
)

// verify checks that every simulated candidate is listed, ended and scored
// within range.
func verify(ctx context.Context, client *HTTPClient, ids []string) error {
	list, err := client.ListCandidates(ctx)
	if err != nil {
		return err
	}
	byID := make(map[string]Candidate, len(list))
	for _, c := range list {
		byID[c.ID] = c
	}
	for _, id := range ids {
		c, ok := byID[id]
		if !ok {
			return fmt.Errorf("candidate %s missing from roster", id)
		}
		if c.EndTime == nil {
			return fmt.Errorf("candidate %s has no end time", id)
		}
		if c.IntegrityScore < 0 || c.IntegrityScore > 100 {
			return fmt.Errorf("candidate %s score %v out of range", id, c.IntegrityScore)
		}
	}
	return nil
}
