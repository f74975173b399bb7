package graphloader

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/rpattn/ontograph/internal/domain"
	"github.com/rpattn/ontograph/internal/repository"

	"github.com/graph-gophers/dataloader"
)

// Loaders batches by-id lookups for the three graph entity kinds so callers
// checking many change records in one request hit the store once per kind.
type Loaders struct {
	concepts      *dataloader.Loader
	relationships *dataloader.Loader
	individuals   *dataloader.Loader
}

// New wires batched loaders over the entity repositories.
func New(
	concepts repository.ConceptRepository,
	relationships repository.RelationshipRepository,
	individuals repository.IndividualRepository,
) *Loaders {
	// Loaders live for the process, so results must not be cached across
	// requests; batching alone gives the fan-in we want.
	wait := dataloader.WithWait(5 * time.Millisecond)
	noCache := dataloader.WithCache(&dataloader.NoCache{})

	conceptBatch := func(ctx context.Context, keys dataloader.Keys) []*dataloader.Result {
		ids, err := parseKeys(keys)
		if err != nil {
			return errorResults(keys, err)
		}
		loaded, err := concepts.LoadByIDs(ctx, ids)
		if err != nil {
			return errorResults(keys, err)
		}
		byID := make(map[int64]domain.Concept, len(loaded))
		for _, c := range loaded {
			byID[c.ID] = c
		}
		results := make([]*dataloader.Result, len(ids))
		for i, id := range ids {
			if c, ok := byID[id]; ok {
				results[i] = &dataloader.Result{Data: c}
			} else {
				results[i] = &dataloader.Result{Data: nil}
			}
		}
		return results
	}

	relationshipBatch := func(ctx context.Context, keys dataloader.Keys) []*dataloader.Result {
		ids, err := parseKeys(keys)
		if err != nil {
			return errorResults(keys, err)
		}
		loaded, err := relationships.LoadByIDs(ctx, ids)
		if err != nil {
			return errorResults(keys, err)
		}
		byID := make(map[int64]domain.Relationship, len(loaded))
		for _, r := range loaded {
			byID[r.ID] = r
		}
		results := make([]*dataloader.Result, len(ids))
		for i, id := range ids {
			if r, ok := byID[id]; ok {
				results[i] = &dataloader.Result{Data: r}
			} else {
				results[i] = &dataloader.Result{Data: nil}
			}
		}
		return results
	}

	individualBatch := func(ctx context.Context, keys dataloader.Keys) []*dataloader.Result {
		ids, err := parseKeys(keys)
		if err != nil {
			return errorResults(keys, err)
		}
		loaded, err := individuals.LoadByIDs(ctx, ids)
		if err != nil {
			return errorResults(keys, err)
		}
		byID := make(map[int64]domain.Individual, len(loaded))
		for _, ind := range loaded {
			byID[ind.ID] = ind
		}
		results := make([]*dataloader.Result, len(ids))
		for i, id := range ids {
			if ind, ok := byID[id]; ok {
				results[i] = &dataloader.Result{Data: ind}
			} else {
				results[i] = &dataloader.Result{Data: nil}
			}
		}
		return results
	}

	return &Loaders{
		concepts:      dataloader.NewBatchedLoader(conceptBatch, wait, noCache),
		relationships: dataloader.NewBatchedLoader(relationshipBatch, wait, noCache),
		individuals:   dataloader.NewBatchedLoader(individualBatch, wait, noCache),
	}
}

// ConceptByID loads one concept through the batch, reporting presence.
func (l *Loaders) ConceptByID(ctx context.Context, id int64) (domain.Concept, bool, error) {
	value, err := l.concepts.Load(ctx, int64Key(id))()
	if err != nil {
		return domain.Concept{}, false, err
	}
	c, ok := value.(domain.Concept)
	return c, ok, nil
}

// RelationshipByID loads one relationship through the batch, reporting presence.
func (l *Loaders) RelationshipByID(ctx context.Context, id int64) (domain.Relationship, bool, error) {
	value, err := l.relationships.Load(ctx, int64Key(id))()
	if err != nil {
		return domain.Relationship{}, false, err
	}
	r, ok := value.(domain.Relationship)
	return r, ok, nil
}

// IndividualByID loads one individual through the batch, reporting presence.
func (l *Loaders) IndividualByID(ctx context.Context, id int64) (domain.Individual, bool, error) {
	value, err := l.individuals.Load(ctx, int64Key(id))()
	if err != nil {
		return domain.Individual{}, false, err
	}
	ind, ok := value.(domain.Individual)
	return ind, ok, nil
}

func int64Key(id int64) dataloader.Key {
	return dataloader.StringKey(strconv.FormatInt(id, 10))
}

func parseKeys(keys dataloader.Keys) ([]int64, error) {
	ids := make([]int64, len(keys))
	for i, k := range keys {
		id, err := strconv.ParseInt(k.String(), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid entity id %q: %w", k.String(), err)
		}
		ids[i] = id
	}
	return ids, nil
}

func errorResults(keys dataloader.Keys, err error) []*dataloader.Result {
	results := make([]*dataloader.Result, len(keys))
	for i := range results {
		results[i] = &dataloader.Result{Error: err}
	}
	return results
}
