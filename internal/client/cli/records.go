package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/iudanet/daybook/internal/client/scheduler"
	"github.com/iudanet/daybook/internal/client/sync"
	"github.com/iudanet/daybook/internal/models"
)

const collectionsHelp = "events or clients"

// recordFlags - поля записи из командной строки
type recordFlags struct {
	fields  []string
	unset   []string
	rawJSON string
	sync    bool
}

func (f *recordFlags) bind(cmd *cobra.Command, withUnset bool) {
	cmd.Flags().StringArrayVarP(&f.fields, "field", "f", nil, "set a field, key=value (repeatable); JSON values are decoded")
	cmd.Flags().StringVar(&f.rawJSON, "json", "", "record fields as a JSON object")
	cmd.Flags().BoolVar(&f.sync, "sync", false, "synchronize the collection right after the edit")
	if withUnset {
		cmd.Flags().StringArrayVar(&f.unset, "unset", nil, "remove a field (repeatable)")
	}
}

func (c *Cli) addCommand() *cobra.Command {
	var flags recordFlags
	cmd := &cobra.Command{
		Use:   "add <collection>",
		Short: "Add a record (" + collectionsHelp + ")",
		Example: `  daybook add events -f title=Dentist -f date=2026-03-14 -f amount=40
  daybook add clients --json '{"name":"Acme","phone":"+1 555 0100"}'`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runAdd(cmd.Context(), args[0], flags)
		},
	}
	flags.bind(cmd, false)
	return cmd
}

func (c *Cli) editCommand() *cobra.Command {
	var flags recordFlags
	cmd := &cobra.Command{
		Use:   "edit <collection> <id>",
		Short: "Change fields of a record",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runEdit(cmd.Context(), args[0], args[1], flags)
		},
	}
	flags.bind(cmd, true)
	return cmd
}

func (c *Cli) getCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "get <collection> <id>",
		Short: "Show a record as JSON",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runGet(cmd.Context(), args[0], args[1])
		},
	}
}

func (c *Cli) listCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list <collection>",
		Short: "List records (" + collectionsHelp + ")",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runList(cmd.Context(), args[0])
		},
	}
}

func (c *Cli) deleteCommand() *cobra.Command {
	var syncAfter bool
	cmd := &cobra.Command{
		Use:   "delete <collection> <id>",
		Short: "Delete a record",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runDelete(cmd.Context(), args[0], args[1], syncAfter)
		},
	}
	cmd.Flags().BoolVar(&syncAfter, "sync", false, "synchronize the collection right after the edit")
	return cmd
}

func (c *Cli) runAdd(ctx context.Context, collection string, flags recordFlags) error {
	rec := models.Record{}
	if err := applyFields(rec, flags); err != nil {
		return err
	}

	saved, err := c.rt.Data.Upsert(ctx, collection, rec)
	if err != nil {
		return fmt.Errorf("failed to add record: %w", err)
	}

	c.io.Println(styleOK.Render("✓ Added " + saved.ID()))
	return c.syncAfterEdit(ctx, collection, flags.sync)
}

func (c *Cli) runEdit(ctx context.Context, collection, id string, flags recordFlags) error {
	rec, err := c.rt.Data.Get(ctx, collection, id)
	if err != nil {
		return err
	}

	rec = rec.Content()
	if err := applyFields(rec, flags); err != nil {
		return err
	}
	for _, key := range flags.unset {
		if key == models.FieldID {
			return fmt.Errorf("field %q cannot be removed", key)
		}
		delete(rec, key)
	}
	// id менять нельзя
	rec[models.FieldID] = id

	if _, err := c.rt.Data.Upsert(ctx, collection, rec); err != nil {
		return fmt.Errorf("failed to update record: %w", err)
	}

	c.io.Println(styleOK.Render("✓ Updated " + id))
	return c.syncAfterEdit(ctx, collection, flags.sync)
}

func (c *Cli) runGet(ctx context.Context, collection, id string) error {
	rec, err := c.rt.Data.Get(ctx, collection, id)
	if err != nil {
		return err
	}

	out, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode record: %w", err)
	}
	c.io.Println(string(out))
	return nil
}

func (c *Cli) runList(ctx context.Context, collection string) error {
	records, err := c.rt.Data.List(ctx, collection)
	if err != nil {
		return err
	}

	if len(records) == 0 {
		c.io.Printf("No records in %s.\n", collection)
		c.io.Println()
		c.io.Printf("Use 'daybook add %s -f key=value' to add one.\n", collection)
		return nil
	}

	models.SortRecords(records)
	c.io.Println(styleHeader.Render(fmt.Sprintf("%s (%d)", collection, len(records))))
	for _, r := range records {
		c.io.Printf("%s  %s  %s\n",
			styleID.Render(r.ID()),
			styleDim.Render(c.since(r.UpdatedAtMs())),
			summary(r))
	}
	return nil
}

func (c *Cli) runDelete(ctx context.Context, collection, id string, syncAfter bool) error {
	if err := c.rt.Data.Delete(ctx, collection, id); err != nil {
		return err
	}
	c.io.Println(styleOK.Render("✓ Deleted " + id))
	return c.syncAfterEdit(ctx, collection, syncAfter)
}

// syncAfterEdit - по флагу --sync сразу отправляет правку; сбой сети не ошибка
func (c *Cli) syncAfterEdit(ctx context.Context, collection string, enabled bool) error {
	if !enabled {
		return nil
	}
	res, err := c.rt.Sync.Reconcile(ctx, collection, scheduler.ReasonMutation)
	if res != nil {
		c.printResults(map[string]*sync.CycleResult{collection: res})
	}
	if err != nil {
		c.io.Println(styleWarn.Render("Not synchronized yet: " + err.Error()))
	}
	return nil
}

// applyFields переносит --json и -f key=value в запись
func applyFields(rec models.Record, flags recordFlags) error {
	if flags.rawJSON != "" {
		var obj map[string]any
		if err := json.Unmarshal([]byte(flags.rawJSON), &obj); err != nil {
			return fmt.Errorf("invalid --json: %w", err)
		}
		for k, v := range obj {
			rec[k] = v
		}
	}

	for _, f := range flags.fields {
		key, value, ok := strings.Cut(f, "=")
		if !ok || key == "" {
			return fmt.Errorf("invalid field %q, expected key=value", f)
		}
		rec[key] = parseValue(value)
	}

	for _, k := range []string{models.FieldUpdatedAtMs, models.FieldOriginDevice} {
		delete(rec, k)
	}
	return nil
}

// parseValue декодирует числа, true/false, null, объекты и массивы; остальное - строка
func parseValue(raw string) any {
	var v any
	if err := json.Unmarshal([]byte(raw), &v); err == nil {
		return v
	}
	return raw
}

// summary - краткое содержимое записи без служебных полей
func summary(r models.Record) string {
	content := r.Content()
	delete(content, models.FieldID)

	keys := make([]string, 0, len(content))
	for k := range content {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%v", k, content[k]))
	}
	return truncate(strings.Join(parts, " "), 72)
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
