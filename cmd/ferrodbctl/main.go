// Command ferrodbctl is a fixed demo sequence exercising the engine end to
// end: create a table, insert a few rows, scan them back with a predicate,
// and print what it found. It is not a query language; the teacher's
// line-oriented SQL CLI is out of scope here.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/ferrolabs/ferrodb/catalog"
	"github.com/ferrolabs/ferrodb/config"
	"github.com/ferrolabs/ferrodb/record"
	"github.com/sirupsen/logrus"
)

func main() {
	dir := flag.String("dir", ".", "directory tables are created under")
	configPath := flag.String("config", "", "optional YAML config file")
	flag.Parse()

	var cfg *config.Config
	var err error
	if *configPath != "" {
		cfg, err = config.Load(*configPath)
	} else {
		cfg = config.Default(*dir)
	}
	if err != nil {
		logrus.WithError(err).Fatal("load config")
	}

	if err := run(cfg); err != nil {
		logrus.WithError(err).Fatal("demo run failed")
	}
}

func run(cfg *config.Config) error {
	schema, err := record.NewSchema([]record.Attribute{
		{Name: "id", Type: record.TypeInt},
		{Name: "name", Type: record.TypeString, Length: 16},
		{Name: "balance", Type: record.TypeFloat},
		{Name: "active", Type: record.TypeBool},
	}, []string{"id"})
	if err != nil {
		return err
	}

	cat := catalog.New(cfg.TableDir)
	const tableName = "accounts"
	_ = os.Remove(cfg.TableDir + "/" + tableName + ".tbl")
	if err := cat.CreateTable(tableName, schema); err != nil {
		return err
	}
	defer cat.CloseAll()

	t, err := cat.Table(tableName)
	if err != nil {
		return err
	}

	rows := []struct {
		id      int32
		name    string
		balance float32
		active  bool
	}{
		{1, "alice", 100.50, true},
		{2, "bob", 0, false},
		{3, "carol", 42.25, true},
	}

	for _, row := range rows {
		rec := record.NewRecord(schema)
		if err := record.SetAttr(rec, schema, 0, row.id); err != nil {
			return err
		}
		if err := record.SetAttr(rec, schema, 1, row.name); err != nil {
			return err
		}
		if err := record.SetAttr(rec, schema, 2, row.balance); err != nil {
			return err
		}
		if err := record.SetAttr(rec, schema, 3, row.active); err != nil {
			return err
		}
		if _, err := record.InsertRecord(t, rec); err != nil {
			return err
		}
	}

	n, err := record.GetNumTuples(t)
	if err != nil {
		return err
	}
	fmt.Printf("inserted %d tuples\n", n)

	// Force the header page durable now rather than waiting for CloseTable's
	// shutdown-time flush, so the tuple count survives a crash right after
	// this batch.
	if err := record.SyncHeader(t); err != nil {
		return err
	}

	activeOnly := record.PredicateFunc(func(s *record.Schema, r *record.Record) (bool, error) {
		v, err := record.GetAttr(r, s, 3)
		if err != nil {
			return false, err
		}
		return v.(bool), nil
	})

	scan := record.StartScan(t, activeOnly)
	defer record.CloseScan(scan)
	for {
		rec, rid, err := record.Next(scan)
		if err != nil {
			break
		}
		id, _ := record.GetAttr(rec, schema, 0)
		name, _ := record.GetAttr(rec, schema, 1)
		balance, _ := record.GetAttr(rec, schema, 2)
		fmt.Printf("rid=%v id=%v name=%v balance=%v\n", rid, id, name, balance)
	}

	return nil
}
