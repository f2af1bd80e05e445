// rootedctl is a command-line client for the ROOTED API.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/jredh-dev/rooted/cmd/rootedctl/internal/client"
)

var (
	version   = "dev"
	commit    = "unknown"
	buildDate = "unknown"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var (
		server  string
		timeout time.Duration
		asJSON  bool
	)
	api := func() *client.Client { return client.New(server) }
	out := func(cmd *cobra.Command) *printer { return &printer{w: cmd.OutOrStdout(), json: asJSON} }
	ctx := func(cmd *cobra.Command) (context.Context, context.CancelFunc) {
		return context.WithTimeout(cmd.Context(), timeout)
	}

	root := &cobra.Command{
		Use:          "rootedctl",
		Short:        "Command-line client for the ROOTED API",
		Version:      fmt.Sprintf("%s (commit %s, built %s)", version, commit, buildDate),
		SilenceUsage: true,
	}
	defaultServer := os.Getenv("ROOTED_URL")
	if defaultServer == "" {
		defaultServer = "http://localhost:8080"
	}
	root.PersistentFlags().StringVar(&server, "server", defaultServer, "API base URL (env ROOTED_URL)")
	root.PersistentFlags().DurationVar(&timeout, "timeout", 10*time.Second, "request timeout")
	root.PersistentFlags().BoolVar(&asJSON, "json", false, "print raw JSON instead of tables")

	// --- users ---
	users := &cobra.Command{Use: "users", Short: "Look up and register users"}
	users.AddCommand(&cobra.Command{
		Use:   "get <id>",
		Short: "Show a user by id",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, cancel := ctx(cmd)
			defer cancel()
			u, err := api().GetUser(c, args[0])
			if err != nil {
				return err
			}
			return out(cmd).users(*u)
		},
	})
	users.AddCommand(&cobra.Command{
		Use:   "find <email>",
		Short: "Show a user by email",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, cancel := ctx(cmd)
			defer cancel()
			u, err := api().FindUser(c, args[0])
			if err != nil {
				return err
			}
			return out(cmd).users(*u)
		},
	})
	var nu client.NewUser
	var location string
	create := &cobra.Command{
		Use:   "create",
		Short: "Register a farmer or buyer",
		RunE: func(cmd *cobra.Command, args []string) error {
			if location != "" {
				nu.Location = &location
			}
			c, cancel := ctx(cmd)
			defer cancel()
			u, err := api().CreateUser(c, nu)
			if err != nil {
				return err
			}
			return out(cmd).users(*u)
		},
	}
	create.Flags().StringVar(&nu.Email, "email", "", "email address")
	create.Flags().StringVar(&nu.Password, "password", "", "password")
	create.Flags().StringVar(&nu.Name, "name", "", "display name")
	create.Flags().StringVar(&nu.Role, "role", "farmer", "farmer or buyer")
	create.Flags().StringVar(&location, "location", "", "optional location")
	users.AddCommand(create)

	// --- crops ---
	crops := &cobra.Command{Use: "crops", Short: "Browse and update crop listings"}
	var filters struct {
		q, cropType, harvest, sort string
		minPrice, maxPrice         string
	}
	market := &cobra.Command{
		Use:   "market",
		Short: "List crops for sale",
		RunE: func(cmd *cobra.Command, args []string) error {
			q := url.Values{}
			for k, v := range map[string]string{
				"q": filters.q, "cropType": filters.cropType, "harvest": filters.harvest,
				"sort": filters.sort, "minPrice": filters.minPrice, "maxPrice": filters.maxPrice,
			} {
				if v != "" {
					q.Set(k, v)
				}
			}
			c, cancel := ctx(cmd)
			defer cancel()
			list, err := api().Marketplace(c, q)
			if err != nil {
				return err
			}
			return out(cmd).crops(list)
		},
	}
	market.Flags().StringVar(&filters.q, "q", "", "search crop names")
	market.Flags().StringVar(&filters.cropType, "type", "", "crop type")
	market.Flags().StringVar(&filters.harvest, "harvest", "", "week, month, season or all")
	market.Flags().StringVar(&filters.sort, "sort", "", "newest, price-low, price-high, harvest-soon or quantity")
	market.Flags().StringVar(&filters.minPrice, "min-price", "", "minimum price")
	market.Flags().StringVar(&filters.maxPrice, "max-price", "", "maximum price")
	crops.AddCommand(market)

	crops.AddCommand(&cobra.Command{
		Use:   "farmer <farmer-id>",
		Short: "List every crop of a farmer",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, cancel := ctx(cmd)
			defer cancel()
			list, err := api().FarmerCrops(c, args[0])
			if err != nil {
				return err
			}
			return out(cmd).crops(list)
		},
	})

	var cropVersion int64
	update := &cobra.Command{
		Use:   "update <id>",
		Short: "Change quantity, price, donation flag or status",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var in client.CropUpdate
			flags := cmd.Flags()
			if flags.Changed("quantity") {
				v, _ := flags.GetInt("quantity")
				in.Quantity = &v
			}
			if flags.Changed("price") {
				v, _ := flags.GetFloat64("price")
				in.Price = &v
			}
			if flags.Changed("donate") {
				v, _ := flags.GetBool("donate")
				in.DonationFlag = &v
			}
			if flags.Changed("status") {
				v, _ := flags.GetString("status")
				in.Status = &v
			}
			c, cancel := ctx(cmd)
			defer cancel()
			crop, err := api().UpdateCrop(c, args[0], in, cropVersion)
			if err != nil {
				return err
			}
			return out(cmd).crops(nil, *crop)
		},
	}
	update.Flags().Int("quantity", 0, "new quantity")
	update.Flags().Float64("price", 0, "new price")
	update.Flags().Bool("donate", false, "mark for donation")
	update.Flags().String("status", "", "available, sold or donated")
	update.Flags().Int64Var(&cropVersion, "version", 0, "expected version (sent as If-Match)")
	crops.AddCommand(update)

	// --- donations ---
	donations := &cobra.Command{Use: "donations", Short: "Manage donation requests"}
	donations.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List pending donation requests",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, cancel := ctx(cmd)
			defer cancel()
			list, err := api().PendingDonations(c)
			if err != nil {
				return err
			}
			return out(cmd).donations(list)
		},
	})
	donations.AddCommand(&cobra.Command{
		Use:   "request <crop-id> <community>",
		Short: "Request a donation of a crop",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, cancel := ctx(cmd)
			defer cancel()
			d, err := api().RequestDonation(c, args[0], args[1])
			if err != nil {
				return err
			}
			return out(cmd).donations(nil, *d)
		},
	})
	var donationVersion int64
	setStatus := &cobra.Command{
		Use:   "set-status <id> <pending|accepted|declined|completed>",
		Short: "Move a donation request to a new status",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, cancel := ctx(cmd)
			defer cancel()
			d, err := api().SetDonationStatus(c, args[0], args[1], donationVersion)
			if err != nil {
				return err
			}
			return out(cmd).donations(nil, *d)
		},
	}
	setStatus.Flags().Int64Var(&donationVersion, "version", 0, "expected version (sent as If-Match)")
	donations.AddCommand(setStatus)

	// --- stats / weather ---
	statsCmd := &cobra.Command{
		Use:   "stats",
		Short: "Show platform statistics",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, cancel := ctx(cmd)
			defer cancel()
			snap, err := api().Stats(c)
			if err != nil {
				return err
			}
			return out(cmd).stats(snap)
		},
	}
	weatherCmd := &cobra.Command{
		Use:   "weather [location]",
		Short: "Show current weather for a location",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			location := ""
			if len(args) == 1 {
				location = args[0]
			}
			c, cancel := ctx(cmd)
			defer cancel()
			raw, err := api().Weather(c, location)
			if err != nil {
				return err
			}
			var pretty interface{}
			if err := json.Unmarshal(raw, &pretty); err != nil {
				return err
			}
			return out(cmd).raw(pretty)
		},
	}

	root.AddCommand(users, crops, donations, statsCmd, weatherCmd)
	return root
}
