package builders

import (
	"context"
	"fmt"
	"testing"

	"github.com/opencohort/cohortc/internal/build"
	"github.com/opencohort/cohortc/internal/dialect"
	"github.com/opencohort/cohortc/internal/ir"
)

// stubBackend satisfies build.Backend for plan-only tests and records every
// statement it would run.
type stubBackend struct {
	d       dialect.Dialect
	created []string
	dropped []string
	stmts   []string
	counts  map[string]int64
}

func newStubBackend(d dialect.Dialect) *stubBackend {
	return &stubBackend{d: d, counts: map[string]int64{}}
}

func (b *stubBackend) Dialect() dialect.Dialect { return b.d }

func (b *stubBackend) HasTable(ctx context.Context, schema, name string) (bool, error) {
	return true, nil
}

func (b *stubBackend) CreateTableAs(ctx context.Context, schema, name, selectSQL string, temp bool) error {
	b.created = append(b.created, name)
	return nil
}

func (b *stubBackend) DropTable(ctx context.Context, schema, name string, force bool) error {
	b.dropped = append(b.dropped, name)
	return nil
}

func (b *stubBackend) Exec(ctx context.Context, stmt string) error {
	b.stmts = append(b.stmts, stmt)
	return nil
}

func (b *stubBackend) QueryCount(ctx context.Context, selectSQL string) (int64, error) {
	return b.counts[selectSQL], nil
}

// planContext returns a build context that performs no IO: staging and
// codeset materialization are both off.
func planContext(t *testing.T, sets ...ir.ConceptSet) *build.Context {
	t.Helper()
	opts := build.DefaultOptions()
	opts.CDMSchema = "cdm"
	opts.MaterializeStages = false
	opts.MaterializeCodesets = false
	ctx, err := build.NewContext(context.Background(), newStubBackend(dialect.DuckDB{}), opts, sets)
	if err != nil {
		t.Fatalf("NewContext() error = %v", err)
	}
	t.Cleanup(func() { ctx.Close(context.Background()) })
	return ctx
}

func boolp(v bool) *bool       { return &v }
func int64p(v int64) *int64    { return &v }
func intp(v int) *int          { return &v }
func floatp(v float64) *float64 { return &v }

func codeset(id int64, conceptIDs ...int64) ir.ConceptSet {
	items := make([]ir.ConceptSetItem, len(conceptIDs))
	for i, cid := range conceptIDs {
		items[i] = ir.ConceptSetItem{Concept: ir.Concept{ConceptID: int64p(cid)}}
	}
	return ir.ConceptSet{
		ID:         id,
		Name:       fmt.Sprintf("set %d", id),
		Expression: &ir.ConceptSetExpression{Items: items},
	}
}
