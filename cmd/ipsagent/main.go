package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"

	"ipsagent/internal"
	"ipsagent/internal/allocate"
	"ipsagent/internal/api"
	"ipsagent/internal/config"
	"ipsagent/internal/listener"
	"ipsagent/internal/notify"
	"ipsagent/internal/report"
	"ipsagent/internal/storage"
)

func main() {
	cfg, err := config.Load()
	must(err)

	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	db, err := storage.Open(cfg.DBPath)
	must(err)
	defer db.Close()

	client := api.NewClient(cfg, db)
	ctx := context.Background()

	cmd := os.Args[1]
	switch cmd {
	case "requests":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		projectID := fs.Int64("project", 0, "project id")
		_ = fs.Parse(os.Args[2:])
		if *projectID == 0 {
			must(fmt.Errorf("--project is required"))
		}
		requests, err := client.RequestsForProject(ctx, *projectID)
		must(err)
		lines := allocate.BuildLines(requests)
		if len(lines) == 0 {
			fmt.Println("no material requests for this project")
			return
		}
		fmt.Printf("%-12s %-30s %9s %9s %9s  %s\n", "material", "name", "requested", "assigned", "remaining", "requests")
		for _, line := range lines {
			ids := make([]string, 0, len(line.Requests))
			for _, req := range line.Requests {
				ids = append(ids, fmt.Sprintf("#%d", req.ID))
			}
			fmt.Printf("%-12s %-30s %9d %9d %9d  %s\n",
				line.Material.ID, line.Material.Name,
				line.RequestedTotal, line.AssignedTotal, line.RemainingTotal,
				strings.Join(ids, ","))
		}
	case "pending":
		requests, err := client.PendingRequests(ctx)
		must(err)
		for _, req := range requests {
			fmt.Printf("#%d\t%-20s %s x%d\t%s\n",
				req.ID, req.Status, req.Material.Name, req.RequestedQuantity, req.Project.Name)
		}
	case "drivers":
		drivers, err := client.Drivers(ctx)
		must(err)
		for _, driver := range drivers {
			fmt.Printf("%d\t%s\n", driver.ID, driver.Name)
		}
	case "assign":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		projectID := fs.Int64("project", 0, "project id")
		driverID := fs.Int64("driver", 0, "driver id")
		date := fs.String("date", "", "delivery date YYYY-MM-DD")
		qty := fs.String("qty", "", "materialId=quantity[,materialId=quantity...]")
		_ = fs.Parse(os.Args[2:])
		if *projectID == 0 || strings.TrimSpace(*qty) == "" {
			must(fmt.Errorf("--project and --qty are required"))
		}

		requests, err := client.RequestsForProject(ctx, *projectID)
		must(err)
		lines := allocate.BuildLines(requests)

		selections, err := parseQuantities(*qty)
		must(err)
		for materialID, quantity := range selections {
			if !allocate.Select(lines, materialID, quantity) {
				must(fmt.Errorf("unknown material for this project: %s", materialID))
			}
		}

		plan, err := allocate.BuildPlan(lines, allocate.Form{DriverID: *driverID, DeliveryDate: *date})
		must(err)

		result := allocate.NewSubmitter(client).Submit(ctx, plan)
		for _, action := range result.Committed {
			fmt.Printf("assigned request #%d: %d %s to driver %d\n",
				action.RequestID, action.Quantity, action.MaterialName, action.DriverID)
		}
		for _, shortfall := range result.Shortfalls {
			fmt.Printf("warning: %s short by %d, no open request could absorb it\n",
				shortfall.MaterialName, shortfall.Missing)
		}
		for _, failed := range result.Failed {
			fmt.Printf("failed request #%d (%s, attempted %d): %v\n",
				failed.Action.RequestID, failed.Action.MaterialName, failed.Action.Quantity, failed.Err)
		}
		for _, skipped := range result.Skipped {
			fmt.Printf("skipped request #%d (%s, %d) after earlier failure on the same material\n",
				skipped.RequestID, skipped.MaterialName, skipped.Quantity)
		}
		if !result.AllCommitted() {
			fmt.Printf("partial result: %d committed, %d failed, %d skipped\n",
				len(result.Committed), len(result.Failed), len(result.Skipped))
			os.Exit(1)
		}
		fmt.Printf("assign done: %d actions committed\n", len(result.Committed))
	case "deliveries":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		driverID := fs.Int64("driver", 0, "driver id")
		all := fs.Bool("all", false, "include SENT deliveries")
		_ = fs.Parse(os.Args[2:])
		if *driverID == 0 {
			must(fmt.Errorf("--driver is required"))
		}
		deliveries, err := client.DeliveriesByDriver(ctx, *driverID)
		must(err)
		for _, del := range deliveries {
			if !*all && del.Status == internal.StatusSent {
				continue
			}
			req := del.MaterialRequest
			fmt.Printf("#%d\t%-20s %s x%d\t%s (%s)\n",
				del.ID, del.Status, req.Material.Name, req.RequestedQuantity,
				req.Project.Name, req.Project.ProjectCode)
		}
	case "delivery:status":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		id := fs.Int64("id", 0, "delivery id")
		status := fs.String("status", "", "PENDING|PARTIALLY_ASSIGNED|ASSIGNED|SENT")
		_ = fs.Parse(os.Args[2:])
		if *id == 0 || strings.TrimSpace(*status) == "" {
			must(fmt.Errorf("--id and --status are required"))
		}
		del, err := client.UpdateDeliveryStatus(ctx, *id, internal.Status(strings.ToUpper(*status)))
		must(err)
		fmt.Printf("delivery #%d now %s\n", del.ID, del.Status)
	case "notifications":
		requests, err := client.AllRequests(ctx)
		must(err)
		seen, err := db.SeenSet()
		must(err)
		feed := notify.BuildFeed(requests, func(key string) bool {
			_, ok := seen[key]
			return ok
		})
		for _, item := range feed {
			marker := " "
			if item.Unread {
				marker = "*"
			}
			fmt.Printf("%s %-22s %s (%s)\n", marker, item.Status, item.Title, item.ProjectName)
		}
		fmt.Printf("unread: %d\n", notify.UnreadCount(feed))
		// Listing is "opening the panel": the whole snapshot becomes read.
		must(db.MarkSeen(notify.Keys(feed)))
	case "notify:listen":
		svc := listener.NewService(db, cfg, client, newLogger())
		must(svc.Run(ctx))
	case "notify:clear":
		must(db.ClearSeen())
		fmt.Println("notification tracking cleared")
	case "session:set":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		token := fs.String("token", "", "bearer token")
		user := fs.String("user", "", "user id")
		role := fs.String("role", "", "ADMIN|HEAD_DRIVER|DRIVER|PROJECT_MANAGER|WORKER")
		_ = fs.Parse(os.Args[2:])
		if strings.TrimSpace(*token) != "" {
			must(db.SetSession(storage.SessionToken, *token))
		}
		if strings.TrimSpace(*user) != "" {
			must(db.SetSession(storage.SessionUserID, *user))
		}
		if strings.TrimSpace(*role) != "" {
			must(db.SetSession(storage.SessionRole, strings.ToUpper(*role)))
		}
		fmt.Println("session updated")
	case "session:clear":
		for _, key := range []string{storage.SessionToken, storage.SessionUserID, storage.SessionRole} {
			must(db.DeleteSession(key))
		}
		must(db.ClearSeen())
		fmt.Println("session and notification tracking cleared")
	case "export:xlsx":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		out := fs.String("out", "", "output xlsx path")
		_ = fs.Parse(os.Args[2:])
		if strings.TrimSpace(*out) == "" {
			must(fmt.Errorf("--out is required"))
		}
		requests, err := client.AllRequests(ctx)
		must(err)
		seen, err := db.SeenSet()
		must(err)
		feed := notify.BuildFeed(requests, func(key string) bool {
			_, ok := seen[key]
			return ok
		})
		must(report.ExportFeedToXLSX(feed, *out))
		fmt.Printf("exported %d rows to %s\n", len(feed), *out)
	default:
		usage()
		os.Exit(1)
	}
}

func parseQuantities(input string) (map[string]int, error) {
	out := map[string]int{}
	for _, pair := range strings.Split(input, ",") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		parts := strings.SplitN(pair, "=", 2)
		if len(parts) != 2 {
			return nil, fmt.Errorf("invalid --qty entry: %s", pair)
		}
		quantity, err := strconv.Atoi(strings.TrimSpace(parts[1]))
		if err != nil {
			return nil, fmt.Errorf("invalid quantity in %s", pair)
		}
		out[strings.TrimSpace(parts[0])] = quantity
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("no quantities in --qty")
	}
	return out, nil
}

func newLogger() *logrus.Logger {
	log := logrus.New()
	log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	return log
}

func usage() {
	fmt.Println("usage: ipsagent <command>")
	fmt.Println("commands:")
	fmt.Println("  requests --project=1")
	fmt.Println("  pending")
	fmt.Println("  drivers")
	fmt.Println("  assign --project=1 --driver=2 [--date=2025-09-29] --qty=mat-1=5,mat-2=3")
	fmt.Println("  deliveries --driver=2 [--all]")
	fmt.Println("  delivery:status --id=1 --status=SENT")
	fmt.Println("  notifications")
	fmt.Println("  notify:listen")
	fmt.Println("  notify:clear")
	fmt.Println("  session:set --token=... [--user=...] [--role=...]")
	fmt.Println("  session:clear")
	fmt.Println("  export:xlsx --out=./out/feed.xlsx")
}

func must(err error) {
	if err == nil {
		return
	}
	fmt.Fprintf(os.Stderr, "error: %v\n", err)
	os.Exit(1)
}
