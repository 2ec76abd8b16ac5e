package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/xpayn3/cyclinghub-server/pkg/bootstrap"
	"github.com/xpayn3/cyclinghub-server/pkg/config"
	"github.com/xpayn3/cyclinghub-server/pkg/elevation"
	hubErrors "github.com/xpayn3/cyclinghub-server/pkg/errors"
	"github.com/xpayn3/cyclinghub-server/pkg/export"
	"github.com/xpayn3/cyclinghub-server/pkg/geo"
	"github.com/xpayn3/cyclinghub-server/pkg/infrastructure/secrets"
	"github.com/xpayn3/cyclinghub-server/pkg/routegraph"
	"github.com/xpayn3/cyclinghub-server/pkg/storage"
	"github.com/xpayn3/cyclinghub-server/pkg/storage/bolt"
	"github.com/xpayn3/cyclinghub-server/pkg/types"
)

type options struct {
	waypoints string
	importGPX string
	name      string
	loop      bool
	outBack   bool
	noElev    bool
	gpxOut    string
	fitOut    string
	geojson   string
	save      bool
	list      bool
}

func main() {
	var opts options
	flag.StringVar(&opts.waypoints, "waypoints", "", `Waypoints as "lat,lng;lat,lng;..."`)
	flag.StringVar(&opts.importGPX, "import", "", "Start from a GPX file instead of -waypoints")
	flag.StringVar(&opts.name, "name", "", "Route name")
	flag.BoolVar(&opts.loop, "loop", false, "Route back to the start avoiding the outbound path")
	flag.BoolVar(&opts.outBack, "out-and-back", false, "Return along the reversed waypoints")
	flag.BoolVar(&opts.noElev, "no-elevation", false, "Skip the elevation lookup")
	flag.StringVar(&opts.gpxOut, "gpx", "", "Write a GPX track to this path")
	flag.StringVar(&opts.fitOut, "fit", "", "Write a FIT course to this path")
	flag.StringVar(&opts.geojson, "geojson", "", "Write GeoJSON to this path")
	flag.BoolVar(&opts.save, "save", false, "Save the route to the local store (BOLT_PATH)")
	flag.BoolVar(&opts.list, "list", false, "List saved routes and exit")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}
	bootstrap.InitLogger(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if opts.list {
		if err := listRoutes(ctx, cfg, os.Stdout); err != nil {
			log.Fatalf("Failed to list routes: %v", err)
		}
		return
	}
	if err := run(ctx, cfg, opts, os.Stdout); err != nil {
		log.Fatalf("Route planning failed: %v", err)
	}
}

func run(ctx context.Context, cfg *config.Config, opts options, out io.Writer) error {
	provider, err := bootstrap.NewRouter(ctx, cfg, &secrets.SecretsAdapter{}, bootstrap.NewRedis(cfg))
	if err != nil {
		return err
	}

	notify := func(n routegraph.Notice) {
		switch n.Kind {
		case routegraph.NoticeFallback:
			fmt.Fprintf(out, "warning: no route %s -> %s, using a straight line\n", fmtPoint(n.From), fmtPoint(n.To))
		case routegraph.NoticeAvoidIgnored:
			fmt.Fprintln(out, "warning: loop could not avoid the outbound route")
		}
	}
	g := routegraph.New(provider, routegraph.WithNotifier(notify))

	name := opts.name
	switch {
	case opts.importGPX != "":
		data, err := os.ReadFile(opts.importGPX)
		if err != nil {
			return err
		}
		imp, err := export.DecodeGPX(data)
		if err != nil {
			return err
		}
		if err := g.Load(imp.Snapshot); err != nil {
			return err
		}
		if name == "" {
			name = imp.Name
		}
	default:
		points, err := parseWaypoints(opts.waypoints)
		if err != nil {
			return err
		}
		for _, p := range points {
			if err := g.AppendWaypoint(ctx, p.Lat, p.Lng); err != nil {
				return err
			}
		}
	}

	switch {
	case opts.loop:
		err = g.LoopBack(ctx)
	case opts.outBack:
		err = g.OutAndBack(ctx)
	}
	if err != nil {
		return err
	}

	if !opts.noElev && g.Elevation().Empty() {
		lookup := elevation.NewClient(cfg.ElevationBaseURL, cfg.HTTPTimeout)
		if profile, err := elevation.BuildProfile(ctx, lookup, g.Points()); err != nil {
			fmt.Fprintf(out, "warning: elevation unavailable: %v\n", err)
		} else {
			g.SetElevation(profile)
		}
	}

	snap := g.Snapshot()
	printSummary(out, provider.Name(), snap.Summary())

	if err := writeExports(snap, name, opts, time.Now(), out); err != nil {
		return err
	}

	if opts.save {
		store, err := bolt.Open(cfg.BoltPath)
		if err != nil {
			return err
		}
		defer store.Close()
		saved, err := storage.NewRoute(name, snap, provider.Name())
		if err != nil {
			return err
		}
		if err := store.SaveRoute(ctx, saved); err != nil {
			return err
		}
		fmt.Fprintf(out, "Saved %q as %s\n", saved.Name, saved.ID)
	}
	return nil
}

func writeExports(snap routegraph.Snapshot, name string, opts options, now time.Time, out io.Writer) error {
	targets := []struct {
		path   string
		format types.ExportFormat
	}{
		{opts.gpxOut, types.FormatGPX},
		{opts.fitOut, types.FormatFITCourse},
		{opts.geojson, types.FormatGeoJSON},
	}
	for _, t := range targets {
		if t.path == "" {
			continue
		}
		data, err := export.Render(nil, t.format, snap, name)
		if err != nil {
			return err
		}
		path := t.path
		if strings.HasSuffix(path, "/") {
			path += export.FileName(now, t.format)
		}
		if err := os.WriteFile(path, data, 0644); err != nil {
			return err
		}
		fmt.Fprintf(out, "Wrote %s (%d bytes)\n", path, len(data))
	}
	return nil
}

// parseWaypoints reads "lat,lng;lat,lng". Whitespace around values is
// ignored.
func parseWaypoints(s string) ([]geo.LatLng, error) {
	var out []geo.LatLng
	for _, pair := range strings.Split(s, ";") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		parts := strings.Split(pair, ",")
		if len(parts) != 2 {
			return nil, hubErrors.ErrValidation.WithMessagef("waypoint %q is not lat,lng", pair)
		}
		lat, err := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
		if err != nil {
			return nil, hubErrors.ErrValidation.WithMessagef("bad latitude in %q", pair).WithCause(err)
		}
		lng, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
		if err != nil {
			return nil, hubErrors.ErrValidation.WithMessagef("bad longitude in %q", pair).WithCause(err)
		}
		out = append(out, geo.LatLng{Lat: lat, Lng: lng})
	}
	if len(out) < 2 {
		return nil, hubErrors.ErrValidation.WithMessage("need at least 2 waypoints")
	}
	return out, nil
}

func fmtPoint(p geo.LatLng) string {
	return fmt.Sprintf("%.5f,%.5f", p.Lat, p.Lng)
}

func printSummary(out io.Writer, provider string, s routegraph.Summary) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "Provider\t%s\n", provider)
	fmt.Fprintf(w, "Distance\t%.1f km\n", s.DistanceMeters/1000)
	fmt.Fprintf(w, "Est. time\t%s\n", routegraph.FormatDuration(s.EstimatedSeconds))
	fmt.Fprintf(w, "Elevation\t+%.0f / -%.0f m\n", s.ElevationGain, s.ElevationLoss)
	fmt.Fprintf(w, "Waypoints\t%d\n", s.Waypoints)
	if s.Fallbacks > 0 {
		fmt.Fprintf(w, "Fallbacks\t%d\n", s.Fallbacks)
	}
	if s.Surface != "" {
		fmt.Fprintf(w, "Surface\t%s\n", s.Surface)
	}
	w.Flush()
}

func listRoutes(ctx context.Context, cfg *config.Config, out io.Writer) error {
	store, err := bolt.Open(cfg.BoltPath)
	if err != nil {
		return err
	}
	defer store.Close()

	routes, err := store.ListRoutes(ctx)
	if err != nil {
		return err
	}
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tName\tDistance\tGain\tSaved")
	for _, r := range routes {
		fmt.Fprintf(w, "%s\t%s\t%.1f km\t%.0f m\t%s\n", r.ID, r.Name, r.DistanceMeters/1000, r.ElevGain, r.CreatedAt.Format(time.DateOnly))
	}
	return w.Flush()
}
