package main

import (
	"encoding/json"
	"io"
	"strconv"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/jredh-dev/rooted/internal/stats"
	"github.com/jredh-dev/rooted/pkg/models"
)

type printer struct {
	w    io.Writer
	json bool
}

func (p *printer) raw(v interface{}) error {
	enc := json.NewEncoder(p.w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func (p *printer) table() table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(p.w)
	t.SetStyle(table.StyleLight)
	return t
}

func (p *printer) users(list ...models.User) error {
	if p.json {
		return p.raw(list)
	}
	t := p.table()
	t.AppendHeader(table.Row{"ID", "Email", "Name", "Role", "Location", "Created"})
	for _, u := range list {
		loc := ""
		if u.Location != nil {
			loc = *u.Location
		}
		t.AppendRow(table.Row{u.ID, u.Email, u.Name, u.Role, loc, u.CreatedAt.Format("2006-01-02")})
	}
	t.Render()
	return nil
}

func (p *printer) crops(list []models.Crop, more ...models.Crop) error {
	list = append(list, more...)
	if p.json {
		return p.raw(list)
	}
	t := p.table()
	t.AppendHeader(table.Row{"ID", "Crop", "Qty", "Price", "Harvest", "Donation", "Status", "Ver"})
	t.SetColumnConfigs([]table.ColumnConfig{
		{Number: 3, Align: text.AlignRight},
		{Number: 4, Align: text.AlignRight},
	})
	for _, c := range list {
		t.AppendRow(table.Row{
			c.ID, c.CropName, c.Quantity, strconv.FormatFloat(c.Price, 'f', 2, 64),
			c.HarvestDate.Format("2006-01-02"), c.DonationFlag, c.Status, c.Version,
		})
	}
	t.AppendFooter(table.Row{"", "", "", "", "", "", "Total", len(list)})
	t.Render()
	return nil
}

func (p *printer) donations(list []models.Donation, more ...models.Donation) error {
	list = append(list, more...)
	if p.json {
		return p.raw(list)
	}
	t := p.table()
	t.AppendHeader(table.Row{"ID", "Crop", "Community", "Status", "Requested", "Updated", "Ver"})
	for _, d := range list {
		t.AppendRow(table.Row{
			d.ID, d.CropID, d.CommunityName, d.Status,
			d.RequestedAt.Format("2006-01-02 15:04"), d.UpdatedAt.Format("2006-01-02 15:04"), d.Version,
		})
	}
	t.Render()
	return nil
}

func (p *printer) stats(s stats.Snapshot) error {
	if p.json {
		return p.raw(s)
	}
	t := p.table()
	t.AppendHeader(table.Row{"Metric", "Value"})
	t.AppendRows([]table.Row{
		{"Farmers", s.TotalFarmers},
		{"Buyers", s.TotalBuyers},
		{"Active crops", s.ActiveCrops},
		{"Donated crops", s.DonatedCrops},
		{"Pending donations", s.PendingDonations},
		{"Completed donations", s.CompletedDonations},
		{"Total donations", s.TotalDonations},
		{"Listed value", strconv.FormatFloat(s.ListedValue, 'f', 2, 64)},
	})
	t.SetCaption("generated %s", s.GeneratedAt.Format("2006-01-02 15:04:05 MST"))
	t.Render()
	return nil
}
