package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/urfave/cli/v3"

	"github.com/starford/offnote/internal/models"
	"github.com/starford/offnote/internal/noteservice"
)

var (
	titleStyle = lipgloss.NewStyle().Bold(true)
	dimStyle   = lipgloss.NewStyle().Faint(true)
	boxStyle   = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)

	statusStyles = map[models.SyncStatus]lipgloss.Style{
		models.StatusSynced:   lipgloss.NewStyle().Foreground(lipgloss.Color("2")),
		models.StatusSyncing:  lipgloss.NewStyle().Foreground(lipgloss.Color("4")),
		models.StatusUnsynced: lipgloss.NewStyle().Foreground(lipgloss.Color("3")),
		models.StatusError:    lipgloss.NewStyle().Foreground(lipgloss.Color("1")),
	}
)

var httpClient = &http.Client{Timeout: 30 * time.Second}

func statusAction(ctx context.Context, cmd *cli.Command) error {
	var rep noteservice.StatusReport
	if err := callClient(ctx, http.MethodGet, cmd.String("addr"), "/api/sync/status", &rep); err != nil {
		return err
	}
	fmt.Println(renderStatus(rep))
	return nil
}

func syncAction(ctx context.Context, cmd *cli.Command) error {
	var res struct {
		Ran        bool   `json:"ran"`
		Skipped    string `json:"skipped"`
		PullFailed bool   `json:"pullFailed"`
		Pushed     int    `json:"pushed"`
		Failed     int    `json:"failed"`
	}
	if err := callClient(ctx, http.MethodPost, cmd.String("addr"), "/api/sync", &res); err != nil {
		return err
	}
	if !res.Ran {
		fmt.Println(dimStyle.Render("skipped: " + res.Skipped))
		return nil
	}
	line := fmt.Sprintf("pushed %d, failed %d", res.Pushed, res.Failed)
	if res.PullFailed {
		line += ", pull failed"
	}
	fmt.Println(line)
	return nil
}

func callClient(ctx context.Context, method, addr, path string, out any) error {
	base, err := url.Parse(addr)
	if err != nil {
		return fmt.Errorf("parse addr: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, method, base.JoinPath(path).String(), nil)
	if err != nil {
		return err
	}
	resp, err := httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("client not reachable at %s: %w", addr, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%s %s: %s", method, path, resp.Status)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// renderStatus formats a status report for the terminal.
func renderStatus(rep noteservice.StatusReport) string {
	var b strings.Builder

	conn := statusStyles[models.StatusSynced].Render("online")
	if !rep.Online {
		conn = statusStyles[models.StatusUnsynced].Render("offline")
	}
	b.WriteString(titleStyle.Render(rep.Headline) + "  " + conn)
	if rep.Running {
		b.WriteString(dimStyle.Render("  (sync running)"))
	}
	b.WriteString("\n")

	s := rep.Summary
	fmt.Fprintf(&b, "%s %d  %s %d  %s %d  %s %d",
		statusStyles[models.StatusSynced].Render("synced"), s.Synced,
		statusStyles[models.StatusSyncing].Render("syncing"), s.Syncing,
		statusStyles[models.StatusUnsynced].Render("unsynced"), s.Unsynced,
		statusStyles[models.StatusError].Render("error"), s.Error,
	)

	// Only notes that need attention are listed.
	var pending []string
	for id, st := range rep.Statuses {
		if st != models.StatusSynced {
			pending = append(pending, id)
		}
	}
	sort.Strings(pending)
	for _, id := range pending {
		st := rep.Statuses[id]
		b.WriteString("\n" + statusStyles[st].Render(fmt.Sprintf("%-9s", st)) + dimStyle.Render(id))
	}

	return boxStyle.Render(b.String())
}
