package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"

	"cable-orchestrator/internal/config"
	"cable-orchestrator/internal/logger"
	"cable-orchestrator/internal/models"
	"cable-orchestrator/internal/service"
	"cable-orchestrator/internal/state"
	"cable-orchestrator/internal/upstream"

	"go.uber.org/zap"
)

var globalFlags struct {
	worksheet string
	service   string
	store     string
	verbose   bool
}

// worksheetFile is the on-disk form of a worksheet.
type worksheetFile struct {
	GroupingThreshold float64          `json:"grouping_threshold"`
	Rows              []models.BulkRow `json:"rows"`
}

// env bundles what every command needs.
type env struct {
	cfg    config.Config
	log    *zap.Logger
	client *upstream.Client
	store  *state.SQLStore
}

func newEnv(ctx context.Context) (*env, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if globalFlags.service != "" {
		cfg.SizingServiceURL = globalFlags.service
	}

	level := "warn"
	if globalFlags.verbose {
		level = "debug"
	}
	log, err := logger.New("development", level)
	if err != nil {
		return nil, err
	}

	path := globalFlags.store
	if path == "" {
		path, err = defaultStorePath()
		if err != nil {
			return nil, err
		}
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("create store dir: %w", err)
	}
	st, err := state.OpenSQLStore(ctx, "sqlite", path)
	if err != nil {
		return nil, err
	}

	return &env{
		cfg:    cfg,
		log:    log,
		client: upstream.NewClient(cfg.SizingServiceURL, cfg.UpstreamTimeout, log),
		store:  st,
	}, nil
}

func (e *env) Close() {
	_ = e.store.Close()
	_ = e.log.Sync()
}

func defaultStorePath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("locate config dir: %w", err)
	}
	return filepath.Join(dir, "cablectl", "mappings.db"), nil
}

// loadWorksheet reads the worksheet file into a fresh Worksheet. A missing
// file yields an empty worksheet.
func (e *env) loadWorksheet() (*service.Worksheet, error) {
	ws := service.NewWorksheet(e.client, e.log)
	data, err := os.ReadFile(globalFlags.worksheet)
	if errors.Is(err, os.ErrNotExist) {
		return ws, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read worksheet: %w", err)
	}
	var f worksheetFile
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse worksheet %s: %w", globalFlags.worksheet, err)
	}
	if f.GroupingThreshold == 0 && len(f.Rows) == 0 {
		f.GroupingThreshold = service.DefaultGroupingThreshold
	}
	if err := ws.Restore(f.Rows, f.GroupingThreshold); err != nil {
		return nil, fmt.Errorf("restore worksheet: %w", err)
	}
	return ws, nil
}

func saveWorksheet(ws *service.Worksheet) error {
	data, err := json.MarshalIndent(worksheetFile{
		GroupingThreshold: ws.GroupingThreshold(),
		Rows:              ws.Rows(),
	}, "", "  ")
	if err != nil {
		return err
	}
	tmp := globalFlags.worksheet + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("write worksheet: %w", err)
	}
	return os.Rename(tmp, globalFlags.worksheet)
}

// parseMapFlags turns repeated field=header flags into a mapping.
func parseMapFlags(pairs []string, schema models.Schema) (models.FieldMapping, error) {
	m := models.FieldMapping{}
	for _, p := range pairs {
		field, header, ok := strings.Cut(p, "=")
		if !ok || field == "" {
			return nil, fmt.Errorf("--map %q: want field=header", p)
		}
		known := false
		for _, f := range schema.Fields() {
			if f == field {
				known = true
				break
			}
		}
		if !known {
			return nil, fmt.Errorf("--map %q: %s is not a %s field", p, field, schema)
		}
		m[field] = header
	}
	return m, nil
}

func printMapping(out io.Writer, m models.FieldMapping, fields []string) {
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "FIELD\tHEADER")
	for _, f := range fields {
		h := m[f]
		if h == "" {
			h = "-"
		}
		fmt.Fprintf(tw, "%s\t%s\n", f, h)
	}
	tw.Flush()
}

func printRows(out io.Writer, rows []models.BulkRow) {
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "CABLE\tFROM\tTO\tLOAD kW\tLENGTH m\tFLC A\tCSA mm2\tVDROP %\tPART\tSTATUS")
	for _, r := range rows {
		flc, csa, vd := "-", "-", "-"
		if res := r.Result; res != nil {
			flc = fmt.Sprintf("%.2f", res.FLC)
			csa = fmt.Sprintf("%g", res.SelectedCSA)
			vd = fmt.Sprintf("%.3f", res.VdropPercent)
		}
		part := "-"
		if r.Catalog.Present() {
			part = strings.TrimSpace(r.Catalog.Vendor + " " + r.Catalog.PartNo)
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%g\t%g\t%s\t%s\t%s\t%s\t%s\n",
			r.CableNumber, r.FromEquipment, r.ToEquipment, r.LoadKW, r.Length,
			flc, csa, vd, part, service.DeriveStatus(r).Label())
	}
	tw.Flush()
}
