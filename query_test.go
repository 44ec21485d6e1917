package ygggo_db

import (
	"context"
	"errors"
	"strings"
	"testing"
)

func seedItems(t *testing.T, h *SQLiteTestHelper) {
	t.Helper()
	succeeded, total := h.Pool().ExecList(context.Background(), []string{
		"INSERT INTO items (id, name, qty) VALUES (1, 'bolt', 100)",
		"INSERT INTO items (id, name, qty) VALUES (2, 'nut', 250)",
		"INSERT INTO items (id, name, qty) VALUES (3, 'washer', 500)",
	})
	if succeeded != total {
		t.Fatalf("seed: %d of %d statements succeeded", succeeded, total)
	}
}

func TestQueryStream_VisitsEveryRow(t *testing.T) {
	h, ctx := newItemsHelper(t)
	seedItems(t, h)

	var names []string
	err := h.Pool().WithConn(ctx, func(c *Conn) error {
		return c.QueryStream(ctx, "SELECT name FROM items ORDER BY id", func(row []any) error {
			names = append(names, row[0].(string))
			return nil
		})
	})
	if err != nil {
		t.Fatalf("QueryStream: %v", err)
	}
	if strings.Join(names, ",") != "bolt,nut,washer" {
		t.Fatalf("names = %v", names)
	}
}

func TestQueryStream_CallbackErrorStops(t *testing.T) {
	h, ctx := newItemsHelper(t)
	seedItems(t, h)

	seen := 0
	stop := errors.New("stop")
	err := h.Pool().WithConn(ctx, func(c *Conn) error {
		return c.QueryStream(ctx, "SELECT id FROM items ORDER BY id", func(row []any) error {
			seen++
			if seen == 2 {
				return stop
			}
			return nil
		})
	})
	if !errors.Is(err, stop) {
		t.Fatalf("err = %v, want callback error", err)
	}
	if seen != 2 {
		t.Fatalf("seen = %d, want 2", seen)
	}
}

func TestSelectRows_EagerIteration(t *testing.T) {
	h, ctx := newItemsHelper(t)
	seedItems(t, h)

	err := h.Pool().WithConn(ctx, func(c *Conn) error {
		var ids []int64
		for row := range c.SelectRows(ctx, "SELECT id FROM items ORDER BY id") {
			ids = append(ids, row[0].(int64))
		}
		if len(ids) != 3 || ids[0] != 1 || ids[2] != 3 {
			t.Fatalf("ids = %v", ids)
		}

		// Breaking early is fine; the rows are already materialized.
		count := 0
		for range c.SelectRows(ctx, "SELECT id FROM items") {
			count++
			break
		}
		if count != 1 {
			t.Fatalf("count = %d, want 1", count)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("WithConn: %v", err)
	}
}

func TestSelectRows_DegradesToEmpty(t *testing.T) {
	h, ctx := newItemsHelper(t)

	err := h.Pool().WithConn(ctx, func(c *Conn) error {
		count := 0
		for range c.SelectRows(ctx, "SELECT nope FROM missing_table") {
			count++
		}
		if count != 0 {
			t.Fatalf("count = %d, want 0 for a failed query", count)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("WithConn: %v", err)
	}
}

type itemRow struct {
	ID   int    `db:"id"`
	Name string `db:"name"`
	Qty  int    `db:"qty"`
}

func TestNamedExec_Struct(t *testing.T) {
	h, ctx := newItemsHelper(t)

	err := h.Pool().WithConn(ctx, func(c *Conn) error {
		_, err := c.NamedExec(ctx,
			"INSERT INTO items (id, name, qty) VALUES (:id, :name, :qty)",
			itemRow{ID: 1, Name: "bolt", Qty: 100})
		return err
	})
	if err != nil {
		t.Fatalf("NamedExec: %v", err)
	}

	name, qty := "", 0
	err = h.Pool().WithConn(ctx, func(c *Conn) error {
		return c.QueryRow(ctx, "SELECT name, qty FROM items WHERE id = ?", 1).Scan(&name, &qty)
	})
	if err != nil {
		t.Fatalf("QueryRow: %v", err)
	}
	if name != "bolt" || qty != 100 {
		t.Fatalf("got (%q, %d)", name, qty)
	}
}

func TestNamedExec_SliceRunsPerElement(t *testing.T) {
	h, ctx := newItemsHelper(t)

	rows := []itemRow{
		{ID: 1, Name: "bolt", Qty: 100},
		{ID: 2, Name: "nut", Qty: 250},
		{ID: 3, Name: "washer", Qty: 500},
	}
	err := h.Pool().WithConn(ctx, func(c *Conn) error {
		res, err := c.NamedExec(ctx,
			"INSERT INTO items (id, name, qty) VALUES (:id, :name, :qty)", rows)
		if err != nil {
			return err
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if affected != 3 {
			t.Fatalf("RowsAffected = %d, want 3", affected)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("NamedExec: %v", err)
	}

	count, err := h.CountRows(ctx, "items")
	if err != nil {
		t.Fatalf("CountRows: %v", err)
	}
	if count != 3 {
		t.Fatalf("count = %d, want 3", count)
	}
}

func TestNamedExec_Map(t *testing.T) {
	h, ctx := newItemsHelper(t)

	err := h.Pool().WithConn(ctx, func(c *Conn) error {
		_, err := c.NamedExec(ctx,
			"INSERT INTO items (id, name, qty) VALUES (:id, :name, :qty)",
			map[string]any{"id": 7, "name": "rivet", "qty": 50})
		return err
	})
	if err != nil {
		t.Fatalf("NamedExec: %v", err)
	}

	count, err := h.CountRows(ctx, "items")
	if err != nil {
		t.Fatalf("CountRows: %v", err)
	}
	if count != 1 {
		t.Fatalf("count = %d, want 1", count)
	}
}

func TestNamedQuery(t *testing.T) {
	h, ctx := newItemsHelper(t)
	seedItems(t, h)

	err := h.Pool().WithConn(ctx, func(c *Conn) error {
		rows, err := c.NamedQuery(ctx,
			"SELECT name FROM items WHERE qty > :min ORDER BY id",
			map[string]any{"min": 200})
		if err != nil {
			return err
		}
		defer rows.Close()
		var names []string
		for rows.Next() {
			var name string
			if err := rows.Scan(&name); err != nil {
				return err
			}
			names = append(names, name)
		}
		if strings.Join(names, ",") != "nut,washer" {
			t.Fatalf("names = %v", names)
		}
		return rows.Err()
	})
	if err != nil {
		t.Fatalf("NamedQuery: %v", err)
	}
}

func TestExpandIn(t *testing.T) {
	h, ctx := newItemsHelper(t)

	err := h.Pool().WithConn(ctx, func(c *Conn) error {
		bound, args, err := c.ExpandIn("SELECT id FROM items WHERE id IN (?)", []int{1, 2, 3})
		if err != nil {
			return err
		}
		if got := strings.Count(bound, "?"); got != 3 {
			t.Fatalf("placeholders = %d in %q, want 3", got, bound)
		}
		if len(args) != 3 {
			t.Fatalf("args = %v", args)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("WithConn: %v", err)
	}
}

func TestQueryIn(t *testing.T) {
	h, ctx := newItemsHelper(t)
	seedItems(t, h)

	err := h.Pool().WithConn(ctx, func(c *Conn) error {
		rows, err := c.QueryIn(ctx,
			"SELECT name FROM items WHERE id IN (?) ORDER BY id", []int{1, 3})
		if err != nil {
			return err
		}
		defer rows.Close()
		var names []string
		for rows.Next() {
			var name string
			if err := rows.Scan(&name); err != nil {
				return err
			}
			names = append(names, name)
		}
		if strings.Join(names, ",") != "bolt,washer" {
			t.Fatalf("names = %v", names)
		}
		return rows.Err()
	})
	if err != nil {
		t.Fatalf("QueryIn: %v", err)
	}
}

func TestExecCached_FallsBackWithoutCache(t *testing.T) {
	h, ctx := newItemsHelper(t)

	err := h.Pool().WithConn(ctx, func(c *Conn) error {
		_, err := c.ExecCached(ctx,
			"INSERT INTO items (id, name, qty) VALUES (?, ?, ?)", 1, "bolt", 100)
		return err
	})
	if err != nil {
		t.Fatalf("ExecCached: %v", err)
	}

	count, err := h.CountRows(ctx, "items")
	if err != nil {
		t.Fatalf("CountRows: %v", err)
	}
	if count != 1 {
		t.Fatalf("count = %d, want 1", count)
	}
}

func TestCachedStatements_InsideTransaction(t *testing.T) {
	h, ctx := newItemsHelper(t)

	err := h.Pool().WithConn(ctx, func(c *Conn) error {
		c.EnableStmtCache(4)
		if err := c.Begin(ctx); err != nil {
			return err
		}
		for i := 1; i <= 3; i++ {
			if _, err := c.ExecCached(ctx,
				"INSERT INTO items (id, name, qty) VALUES (?, ?, ?)", i, "part", i*10); err != nil {
				_ = c.Rollback()
				return err
			}
		}
		if err := c.Commit(); err != nil {
			return err
		}

		rows, err := c.QueryCached(ctx, "SELECT COUNT(*) FROM items")
		if err != nil {
			return err
		}
		defer rows.Close()
		var count int
		if rows.Next() {
			if err := rows.Scan(&count); err != nil {
				return err
			}
		}
		if count != 3 {
			t.Fatalf("count = %d, want 3", count)
		}
		return rows.Err()
	})
	if err != nil {
		t.Fatalf("WithConn: %v", err)
	}
}
