package executor

import (
	"context"

	"github.com/probcomp/bayesdb/internal/ast"
	"github.com/probcomp/bayesdb/internal/backend"
	"github.com/probcomp/bayesdb/internal/dberr"
)

// evalBudgetValue resolves an AnalyzeBudget's literal expression to a
// concrete amount. Budgets are always written as simple numeric literals
// (spec.md §4.7: "N ITERATIONS|SECONDS|MINUTES"); anything else is rejected
// rather than guessed at.
func evalBudgetValue(e ast.Expr) (float64, error) {
	switch v := e.(type) {
	case *ast.IntegerLit:
		return float64(v.Value), nil
	case *ast.FloatLit:
		return v.Value, nil
	default:
		return 0, dberr.Internalf("ANALYZE budget must be a numeric literal, got %T", e)
	}
}

const defaultCheckpoint = 1.0 // one iteration per chunk when no CHECKPOINT clause is given

// execAnalyze runs the checkpoint-bounded training loop of spec.md §4.7: it
// repeatedly calls the generator's backend for one checkpoint-sized chunk,
// committing after each chunk so a partial ANALYZE survives a later crash,
// and polls the interrupt flag between chunks (spec.md §5 point i).
func (c *Connection) execAnalyze(ctx context.Context, n *ast.AnalyzeStmt) error {
	if c.tx != nil {
		return dberr.Transaction("ANALYZE cannot run inside an open transaction")
	}

	budgetValue, err := evalBudgetValue(n.Budget.Value)
	if err != nil {
		return err
	}
	checkpoint := defaultCheckpoint
	checkpointUnit := n.Budget.Unit
	if n.Checkpoint != nil {
		cv, err := evalBudgetValue(n.Checkpoint.Value)
		if err != nil {
			return err
		}
		checkpoint = cv
		checkpointUnit = n.Checkpoint.Unit
	}
	if checkpointUnit != n.Budget.Unit {
		return dberr.Internalf("ANALYZE checkpoint unit %q must match budget unit %q", checkpointUnit, n.Budget.Unit)
	}

	tx, err := c.ex.Begin(ctx)
	if err != nil {
		return err
	}
	g, err := c.cat.LookupGenerator(ctx, tx, n.Generator)
	if err != nil {
		tx.Rollback()
		return err
	}
	modelIDs, err := resolveModelSpec(ctx, c.cat, tx, g.ID, n.Models)
	if err != nil {
		tx.Rollback()
		return err
	}
	b, err := c.registry.Lookup(g.Backend)
	if err != nil {
		tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}

	program := backend.AnalyzeProgram{Text: n.Program}
	spent := 0.0
	for spent < budgetValue {
		if err := c.checkInterrupt(); err != nil {
			return err
		}
		remaining := budgetValue - spent
		chunk := checkpoint
		if chunk > remaining {
			chunk = remaining
		}
		used, err := b.AnalyzeModels(g.ID, modelIDs, program, backend.AnalyzeBudget{Unit: n.Budget.Unit, Value: chunk})
		if err != nil {
			return dberr.Backend(g.Backend, err)
		}
		if used <= 0 {
			break
		}
		spent += used
		if n.Budget.Unit == "iterations" {
			if err := c.recordIterations(ctx, g.ID, modelIDs, used); err != nil {
				return err
			}
		}
	}
	return nil
}

// recordIterations commits used additional iterations to every model's
// catalog counter (spec.md §3's per-model iteration counter) in its own
// short transaction, independent of the chunk's backend call, matching
// spec.md §4.7's "each chunk committed ... independently".
func (c *Connection) recordIterations(ctx context.Context, generatorID int64, modelIDs []int, used float64) error {
	tx, err := c.ex.Begin(ctx)
	if err != nil {
		return err
	}
	if err := c.cat.AddModelIterations(ctx, tx, generatorID, modelIDs, int(used)); err != nil {
		tx.Rollback()
		return err
	}
	return tx.Commit()
}
