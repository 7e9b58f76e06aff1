package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/afpthedev/super-duper-winner/internal/logging"
	"github.com/afpthedev/super-duper-winner/internal/store"
)

type TypeSet map[string]struct{}

type SchemaMap map[string]TypeSet

type Inventory struct {
	GeneratedAtUTC string     `json:"generated_at_utc"`
	RawRoot        string     `json:"raw_root"`
	Sources        []Source   `json:"sources"`
	Coverage       []Coverage `json:"coverage"`
}

// Source is one family of raw files, e.g. every fetched squad.
type Source struct {
	Name         string  `json:"name"`
	FilesScanned int     `json:"files_scanned"`
	Fields       []Field `json:"fields"`
}

type Field struct {
	Path  string   `json:"path"`
	Types []string `json:"types"`
}

var sources = []struct {
	Name string
	Glob string
}{
	{"squads", "teams/*/squad.json"},
	{"local-teams", "local/teams.json"},
}

func main() {
	var (
		rawRoot  = flag.String("raw-root", "data/raw", "root directory for raw data")
		outPath  = flag.String("out", "data/derived/schema_inventory.json", "output path")
		maxFiles = flag.Int("max-files", 0, "max files per source (0 = no limit)")
		logLevel = flag.String("log-level", "info", "log level")
	)
	flag.Parse()
	log := logging.New(*logLevel, "text")

	inv, err := buildInventory(store.NewJSONStore(*rawRoot), *maxFiles, log)
	if err != nil {
		log.WithError(err).Fatal("build inventory")
	}

	if err := os.MkdirAll(filepath.Dir(*outPath), 0o755); err != nil {
		log.WithError(err).Fatal("create output dir")
	}
	payload, err := json.MarshalIndent(inv, "", "  ")
	if err != nil {
		log.WithError(err).Fatal("encode inventory")
	}
	payload = append(payload, '\n')
	if err := os.WriteFile(*outPath, payload, 0o644); err != nil {
		log.WithError(err).Fatal("write inventory")
	}
	log.WithField("path", *outPath).Info("wrote schema inventory")
}

func buildInventory(st *store.JSONStore, maxFiles int, log logrus.FieldLogger) (*Inventory, error) {
	inv := &Inventory{
		GeneratedAtUTC: time.Now().UTC().Format(time.RFC3339),
		RawRoot:        st.Root,
		Sources:        make([]Source, 0, len(sources)),
	}
	cov := newCoverageCounter()

	for _, src := range sources {
		files, err := st.Glob(src.Glob)
		if err != nil {
			return nil, fmt.Errorf("glob %s: %w", src.Glob, err)
		}
		if maxFiles > 0 && len(files) > maxFiles {
			files = files[:maxFiles]
		}
		if len(files) == 0 {
			log.WithFields(logrus.Fields{"source": src.Name, "glob": src.Glob}).Warn("no files")
			continue
		}

		schema := make(SchemaMap)
		for _, rel := range files {
			raw, err := st.ReadRaw(rel)
			if err != nil {
				log.WithError(err).WithField("file", rel).Warn("read error")
				continue
			}
			var v any
			if err := json.Unmarshal(raw, &v); err != nil {
				log.WithError(err).WithField("file", rel).Warn("json error")
				continue
			}
			walkSchema(v, "$", schema)
			if err := cov.addFile(raw); err != nil {
				log.WithError(err).WithField("file", rel).Warn("no players decoded")
			}
		}

		inv.Sources = append(inv.Sources, Source{
			Name:         src.Name,
			FilesScanned: len(files),
			Fields:       schemaToFields(schema),
		})
	}

	inv.Coverage = cov.report()
	return inv, nil
}

func walkSchema(v any, path string, schema SchemaMap) {
	switch x := v.(type) {
	case map[string]any:
		addType(schema, path, "object")
		keys := make([]string, 0, len(x))
		for k := range x {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			walkSchema(x[k], path+"."+k, schema)
		}
	case []any:
		addType(schema, path, "array")
		if len(x) == 0 {
			addType(schema, path+"[]", "unknown")
		}
		// Player lists are heterogeneous, so every element is walked.
		for _, el := range x {
			walkSchema(el, path+"[]", schema)
		}
	case string:
		addType(schema, path, "string")
	case bool:
		addType(schema, path, "bool")
	case float64:
		addType(schema, path, "number")
	case nil:
		addType(schema, path, "null")
	default:
		addType(schema, path, fmt.Sprintf("%T", v))
	}
}

func addType(schema SchemaMap, path string, typ string) {
	set, ok := schema[path]
	if !ok {
		set = make(TypeSet)
		schema[path] = set
	}
	set[typ] = struct{}{}
}

func schemaToFields(schema SchemaMap) []Field {
	paths := make([]string, 0, len(schema))
	for p := range schema {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	fields := make([]Field, 0, len(paths))
	for _, p := range paths {
		types := make([]string, 0, len(schema[p]))
		for t := range schema[p] {
			types = append(types, t)
		}
		sort.Strings(types)
		fields = append(fields, Field{
			Path:  p,
			Types: types,
		})
	}
	return fields
}
