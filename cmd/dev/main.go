package main

import (
	"bytes"
	"context"
	"errors"
	"flag"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/afpthedev/super-duper-winner/internal/aggregate"
	"github.com/afpthedev/super-duper-winner/internal/config"
	"github.com/afpthedev/super-duper-winner/internal/fetch"
	"github.com/afpthedev/super-duper-winner/internal/logging"
	"github.com/afpthedev/super-duper-winner/internal/model"
	"github.com/afpthedev/super-duper-winner/internal/reconcile"
	"github.com/afpthedev/super-duper-winner/internal/store"
	"github.com/afpthedev/super-duper-winner/internal/summary"
)

func main() {
	var (
		configPath  = flag.String("config", "squad.yaml", "YAML config file (optional)")
		teamIDs     = flag.String("team", "", "comma-separated provider team ids to fetch")
		fbrefURLs   = flag.String("fbref", "", "comma-separated FBRef squad page URLs to fetch and normalise")
		leagueURLs  = flag.String("league", "", "comma-separated FBRef league page URLs; every linked squad is fetched")
		rawRoot     = flag.String("raw-root", "", "root directory for raw data (default from config)")
		derivedRoot = flag.String("derived-root", "", "root directory for derived JSON (default from config)")
		pretty      = flag.Bool("pretty", true, "pretty-print JSON to disk")
		sleepMS     = flag.Int("sleep-ms", -1, "sleep between requests in ms (-1 = config)")
		refresh     = flag.Bool("refresh", false, "re-download even when cached")
		live        = flag.Bool("live", false, "disable cache and disk writes")
		formation   = flag.String("formation", "", "formation override for every team view")
		withLocal   = flag.Bool("local", true, "include locally-authored teams in summaries")
	)
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		logrus.WithError(err).Fatal("load config")
	}
	log := logging.New(cfg.Log.Level, cfg.Log.Format)
	ctx := context.Background()

	if *rawRoot == "" {
		*rawRoot = cfg.Provider.RawRoot
	}
	if *derivedRoot == "" {
		*derivedRoot = cfg.Provider.DerivedRoot
	}

	st := store.NewJSONStore(*rawRoot)
	client := fetch.NewClient(st)
	client.BaseURL = cfg.Provider.BaseURL
	client.UserAgent = cfg.Provider.UserAgent
	client.Sleep = cfg.Provider.Sleep
	if *sleepMS >= 0 {
		client.Sleep = time.Duration(*sleepMS) * time.Millisecond
	}
	client.PrettyWrite = *pretty && !*live
	client.UseCache = !*live
	client.DisableWrite = *live

	var fetched []model.TeamRecord

	for _, id := range splitFlag(*teamIDs) {
		log.WithField("team_id", id).Info("fetching squad")
		body, err := client.TeamSquad(ctx, id, *refresh)
		must(log, err)
		team, err := fetch.DecodeTeam(body)
		must(log, err)
		log.WithFields(logrus.Fields{"team": team.Name, "players": len(team.Players)}).Info("squad decoded")
		fetched = append(fetched, *team)
	}

	squadURLs := splitFlag(*fbrefURLs)
	for _, leagueURL := range splitFlag(*leagueURLs) {
		log.WithField("url", leagueURL).Info("fetching fbref league page")
		body, err := client.Page(ctx, leagueURL, fetch.PageRelPath(leagueURL), *refresh)
		must(log, err)
		teams, err := fetch.ParseFBRefLeague(bytes.NewReader(body), leagueURL)
		must(log, err)
		for _, t := range teams {
			squadURLs = append(squadURLs, t.URL)
		}
		log.WithFields(logrus.Fields{"url": leagueURL, "teams": len(teams)}).Info("league teams found")
	}

	for _, pageURL := range squadURLs {
		log.WithField("url", pageURL).Info("fetching fbref page")
		body, err := client.Page(ctx, pageURL, fetch.PageRelPath(pageURL), *refresh)
		must(log, err)
		team, err := fetch.ParseFBRefSquad(bytes.NewReader(body), pageURL)
		must(log, err)
		entry := log.WithFields(logrus.Fields{"team": team.Name, "season": team.Season, "players": len(team.Players)})
		if !*live {
			rel, err := fetch.SaveSquad(st, team)
			must(log, err)
			entry = entry.WithField("path", rel)
		}
		entry.Info("fbref squad normalised")
		fetched = append(fetched, *team)
	}

	if *live {
		// Nothing was written; report the views instead.
		for i := range fetched {
			view := summary.BuildTeamView(&fetched[i], *formation)
			log.WithFields(logrus.Fields{
				"team":      view.Team,
				"formation": view.Formation,
				"source":    view.FormationSource,
				"starters":  len(view.Starters),
				"bench":     len(view.Bench),
			}).Info("team view")
		}
		log.Info("derive-summaries skipped in live mode")
		return
	}

	remote, err := fetch.RemoteSource{Store: st}.Teams(ctx)
	must(log, err)
	teams := remote
	if *withLocal {
		repo, err := store.Open(cfg.Store, st)
		must(log, err)
		if c, ok := repo.(io.Closer); ok {
			defer c.Close()
		}
		local, err := repo.Load(ctx)
		must(log, err)
		teams = append(append([]model.TeamRecord(nil), remote...), local...)

		for i := range local {
			ri := store.LookupTeam(remote, local[i].Name)
			if ri < 0 {
				continue
			}
			report := reconcile.BuildReport(&local[i], &remote[ri])
			must(log, reconcile.WriteReport(filepath.Join(*derivedRoot, "reconcile", model.Slug(local[i].Name)+".json"), report))
			log.WithFields(logrus.Fields{
				"team":        local[i].Name,
				"matched":     len(report.Matched),
				"local_only":  len(report.LocalOnly),
				"remote_only": len(report.RemoteOnly),
			}).Info("roster reconciled")
		}
	}

	must(log, summary.BuildTeamSummaries(*derivedRoot, teams, *formation))
	for i := range teams {
		slug := model.Slug(teams[i].Name)
		report := aggregate.BuildReport(&teams[i])
		must(log, aggregate.WriteReport(filepath.Join(*derivedRoot, "reports", slug+".json"), report))
	}

	log.WithFields(logrus.Fields{"teams": len(teams), "derived_root": *derivedRoot}).Info("done")
}

func splitFlag(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func must(log logrus.FieldLogger, err error) {
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			log.Fatal("missing cached data; run with --refresh or without --live")
		}
		log.WithError(err).Fatal("dev run failed")
	}
}
