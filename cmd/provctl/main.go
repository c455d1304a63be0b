package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/jmerrifield20/ProvenanceRegistry/pkg/client"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// version is overridden via -ldflags "-X main.version=...".
var version = "dev"

const defaultRegistryURL = "http://localhost:8080"

var (
	registryURL  string
	cfgFile      string
	outputFormat string
	adminToken   string
	insecure     bool
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "provctl",
	Short: "Product provenance registry CLI",
	Long: `provctl is the command-line interface for the product provenance registry.

It registers products, records supply-chain events, runs authenticity
verifications, and queries the verification log.`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if cfgFile != "" {
			viper.SetConfigFile(cfgFile)
		} else {
			home, _ := os.UserHomeDir()
			viper.AddConfigPath(home + "/.provctl")
			viper.SetConfigName("config")
			viper.SetConfigType("yaml")
		}
		viper.SetEnvPrefix("provctl")
		viper.AutomaticEnv()
		_ = viper.ReadInConfig()

		if registryURL == "" {
			registryURL = viper.GetString("registry_url")
		}
		if registryURL == "" {
			registryURL = defaultRegistryURL
		}
		if adminToken == "" {
			adminToken = viper.GetString("admin_token")
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default ~/.provctl/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&registryURL, "registry", "", "registry URL (default "+defaultRegistryURL+")")
	rootCmd.PersistentFlags().StringVar(&outputFormat, "format", "text", "Output format: text or json")
	rootCmd.PersistentFlags().BoolVar(&insecure, "insecure", false, "Skip TLS certificate verification (development only)")

	rootCmd.AddCommand(registerCmd)
	rootCmd.AddCommand(eventCmd)
	rootCmd.AddCommand(verifyCmd)
	rootCmd.AddCommand(getCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(logsCmd)
	rootCmd.AddCommand(snapshotCmd)
	rootCmd.AddCommand(versionCmd)
}

func newClient() (*client.Client, error) {
	var opts []client.Option
	if insecure {
		opts = append(opts, client.WithInsecureSkipVerify())
	}
	if adminToken != "" {
		opts = append(opts, client.WithAdminToken(adminToken))
	}
	return client.New(registryURL, opts...)
}

// now returns the default logical timestamp for commands: Unix seconds.
func now() int64 { return time.Now().Unix() }

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// ── register ─────────────────────────────────────────────────────────────────

var (
	regType     string
	regProducer string
	regTime     int64
	regLocation string
)

var registerCmd = &cobra.Command{
	Use:   "register <product-id>",
	Short: "Register a new product",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newClient()
		if err != nil {
			return err
		}
		if regTime == 0 {
			regTime = now()
		}

		p, err := c.RegisterProduct(context.Background(), client.RegisterProductRequest{
			ProductID:   args[0],
			ProductType: regType,
			Producer:    regProducer,
			Timestamp:   regTime,
			Location:    regLocation,
		})
		if err != nil {
			return fmt.Errorf("register product: %w", err)
		}

		if outputFormat == "json" {
			return printJSON(cmd.OutOrStdout(), p)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "✓ Product registered\n\n")
		fmt.Fprintf(cmd.OutOrStdout(), "  ID:       %s\n", p.ProductID)
		fmt.Fprintf(cmd.OutOrStdout(), "  Type:     %s\n", p.ProductType)
		fmt.Fprintf(cmd.OutOrStdout(), "  Producer: %s\n", p.Producer)
		return nil
	},
}

func init() {
	registerCmd.Flags().StringVar(&regType, "type", "", "Product type (e.g. widget)")
	registerCmd.Flags().StringVar(&regProducer, "producer", "", "Producer name")
	registerCmd.Flags().Int64Var(&regTime, "time", 0, "Registration timestamp (default: now, Unix seconds)")
	registerCmd.Flags().StringVar(&regLocation, "location", "", "Registration location")

	_ = registerCmd.MarkFlagRequired("type")
	_ = registerCmd.MarkFlagRequired("producer")
}

// ── event ────────────────────────────────────────────────────────────────────

var (
	evType     string
	evTime     int64
	evLocation string
	evHandler  string
)

var eventCmd = &cobra.Command{
	Use:   "event <product-id>",
	Short: "Append a supply-chain event to a product",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newClient()
		if err != nil {
			return err
		}
		if evTime == 0 {
			evTime = now()
		}

		ev, err := c.AddEvent(context.Background(), args[0], client.Event{
			EventType: evType,
			Timestamp: evTime,
			Location:  evLocation,
			Handler:   evHandler,
		})
		if err != nil {
			return fmt.Errorf("add event: %w", err)
		}

		if outputFormat == "json" {
			return printJSON(cmd.OutOrStdout(), ev)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "✓ Event %q recorded for %s\n", ev.EventType, args[0])
		return nil
	},
}

func init() {
	eventCmd.Flags().StringVar(&evType, "type", "", "Event type (e.g. shipped, received)")
	eventCmd.Flags().Int64Var(&evTime, "time", 0, "Event timestamp (default: now, Unix seconds)")
	eventCmd.Flags().StringVar(&evLocation, "location", "", "Where the event happened")
	eventCmd.Flags().StringVar(&evHandler, "handler", "", "Who handled the product")

	_ = eventCmd.MarkFlagRequired("type")
}

// ── verify ───────────────────────────────────────────────────────────────────

var (
	verTime     int64
	verLocation string
)

var verifyCmd = &cobra.Command{
	Use:   "verify <product-id> <image-hash>",
	Short: "Run an authenticity verification",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newClient()
		if err != nil {
			return err
		}
		if verTime == 0 {
			verTime = now()
		}

		v, err := c.Verify(context.Background(), args[0], args[1], verTime, verLocation)
		if err != nil {
			return fmt.Errorf("verify: %w", err)
		}

		if outputFormat == "json" {
			return printJSON(cmd.OutOrStdout(), v)
		}
		verdict := "SUSPECT"
		if v.IsAuthentic {
			verdict = "AUTHENTIC"
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s (confidence %.2f)\n", verdict, v.ConfidenceScore)
		fmt.Fprintf(cmd.OutOrStdout(), "  Verification ID: %s\n", v.VerificationID)
		return nil
	},
}

func init() {
	verifyCmd.Flags().Int64Var(&verTime, "time", 0, "Verification timestamp (default: now, Unix seconds)")
	verifyCmd.Flags().StringVar(&verLocation, "location", "", "Where the verification happened")
}

// ── get ──────────────────────────────────────────────────────────────────────

var getCmd = &cobra.Command{
	Use:   "get <product-id>",
	Short: "Show a product with its full event and verification history",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newClient()
		if err != nil {
			return err
		}

		p, err := c.GetProduct(context.Background(), args[0])
		if err != nil {
			return fmt.Errorf("get product: %w", err)
		}

		if outputFormat == "json" {
			return printJSON(cmd.OutOrStdout(), p)
		}
		return printProduct(cmd.OutOrStdout(), p)
	},
}

func printProduct(out io.Writer, p *client.Product) error {
	fmt.Fprintf(out, "Product:    %s\n", p.ProductID)
	fmt.Fprintf(out, "Type:       %s\n", p.ProductType)
	fmt.Fprintf(out, "Producer:   %s\n", p.Producer)
	fmt.Fprintf(out, "Registered: %d @ %s\n", p.RegistrationTimestamp, p.RegistrationLocation)

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	if len(p.Events) > 0 {
		fmt.Fprintln(w, "\nTIME\tEVENT\tLOCATION\tHANDLER")
		for _, e := range p.Events {
			fmt.Fprintf(w, "%d\t%s\t%s\t%s\n", e.Timestamp, e.EventType, e.Location, e.Handler)
		}
	}
	if len(p.Verifications) > 0 {
		fmt.Fprintln(w, "\nTIME\tVERIFICATION\tSCORE\tAUTHENTIC\tLOCATION")
		for _, v := range p.Verifications {
			fmt.Fprintf(w, "%d\t%s\t%.2f\t%t\t%s\n", v.Timestamp, v.VerificationID, v.ConfidenceScore, v.IsAuthentic, v.Location)
		}
	}
	return w.Flush()
}

// ── list ─────────────────────────────────────────────────────────────────────

var (
	listLimit  int
	listOffset int
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List registered products",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newClient()
		if err != nil {
			return err
		}

		products, err := c.ListProducts(context.Background(), listLimit, listOffset)
		if err != nil {
			return fmt.Errorf("list products: %w", err)
		}

		if outputFormat == "json" {
			return printJSON(cmd.OutOrStdout(), products)
		}
		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tTYPE\tPRODUCER\tEVENTS\tVERIFICATIONS")
		for _, p := range products {
			fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%d\n", p.ProductID, p.ProductType, p.Producer, len(p.Events), len(p.Verifications))
		}
		return w.Flush()
	},
}

func init() {
	listCmd.Flags().IntVar(&listLimit, "limit", 50, "Maximum products to return")
	listCmd.Flags().IntVar(&listOffset, "offset", 0, "Products to skip")
}

// ── logs ─────────────────────────────────────────────────────────────────────

var (
	logsStart int64
	logsEnd   int64
)

var logsCmd = &cobra.Command{
	Use:   "logs",
	Short: "Show verifications recorded within a timestamp range (inclusive)",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newClient()
		if err != nil {
			return err
		}

		logs, err := c.VerificationLogs(context.Background(), logsStart, logsEnd)
		if err != nil {
			return fmt.Errorf("query logs: %w", err)
		}

		if outputFormat == "json" {
			return printJSON(cmd.OutOrStdout(), logs)
		}
		return printLogs(cmd.OutOrStdout(), logs)
	},
}

func printLogs(out io.Writer, logs []client.LogEntry) error {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "TIME\tPRODUCT\tVERIFICATION\tSCORE\tAUTHENTIC")
	for _, l := range logs {
		fmt.Fprintf(w, "%d\t%s\t%s\t%.2f\t%t\n",
			l.Result.Timestamp, l.ProductID, l.Result.VerificationID, l.Result.ConfidenceScore, l.Result.IsAuthentic)
	}
	return w.Flush()
}

func init() {
	logsCmd.Flags().Int64Var(&logsStart, "start", 0, "Earliest timestamp to include")
	logsCmd.Flags().Int64Var(&logsEnd, "end", 0, "Latest timestamp to include")

	_ = logsCmd.MarkFlagRequired("end")
}

// ── snapshot ─────────────────────────────────────────────────────────────────

var snapshotCmd = &cobra.Command{
	Use:   "snapshot",
	Short: "Ask the registry to save a snapshot now (admin)",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newClient()
		if err != nil {
			return err
		}
		if err := c.Checkpoint(context.Background()); err != nil {
			return fmt.Errorf("snapshot: %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), "✓ Snapshot saved")
		return nil
	},
}

func init() {
	snapshotCmd.Flags().StringVar(&adminToken, "admin-token", "", "Admin token (or PROVCTL_ADMIN_TOKEN)")
}

// ── version ──────────────────────────────────────────────────────────────────

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the provctl version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "provctl %s\n", version)
	},
}
