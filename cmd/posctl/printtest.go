package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/chillbillcoservice-creator/cafe-pos-new-sub000/internal/config"
	"github.com/chillbillcoservice-creator/cafe-pos-new-sub000/internal/kot"
	"github.com/chillbillcoservice-creator/cafe-pos-new-sub000/internal/printer"
)

var printTestOpts struct {
	addr   string
	routes string
	group  string
}

var printTestCmd = &cobra.Command{
	Use:   "print-test",
	Short: "Send a sample KOT to a kitchen printer",
	Long: `print-test renders a sample ticket and sends it either straight to
--addr or through the printer routing file (--routes, default
$PRINTER_ROUTES) using --group to pick the route.`,
	Args: cobra.NoArgs,
	RunE: runPrintTest,
}

func init() {
	f := printTestCmd.Flags()
	f.StringVar(&printTestOpts.addr, "addr", "", "printer host:port, bypasses routing")
	f.StringVar(&printTestOpts.routes, "routes", "", "printer routing file")
	f.StringVar(&printTestOpts.group, "group", "KITCHEN", "ticket group to route")
}

func sampleTicket(group string) kot.Ticket {
	return kot.Ticket{
		Group: group,
		Kind:  kot.KindNew,
		Lines: []kot.Line{
			{Name: "Printer test", Quantity: 1, Instructions: "ignore this ticket"},
			{Name: "Masala Chai", Quantity: 2},
		},
	}
}

func runPrintTest(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(cmd.Context(), 15*time.Second)
	defer cancel()

	header := printer.Header{
		Restaurant:   "cafe-pos",
		OrderNumber:  "TEST",
		OrderType:    "DINE_IN",
		TicketNumber: 1,
		StaffName:    "posctl",
		At:           time.Now(),
	}
	ticket := sampleTicket(printTestOpts.group)

	if printTestOpts.addr != "" {
		if err := (printer.TCPSink{}).Send(ctx, printTestOpts.addr, printer.RenderTicket(header, ticket)); err != nil {
			return err
		}
		zap.L().Info("test ticket sent", zap.String("addr", printTestOpts.addr))
		return nil
	}

	path := printTestOpts.routes
	if path == "" {
		path = config.Load().PrinterRoutesFile
	}
	routes, err := config.LoadPrinterRoutes(path)
	if err != nil {
		return err
	}
	r := printer.NewRouter(routes, printer.TCPSink{})
	if !r.Enabled() {
		return fmt.Errorf("no printer routes configured; pass --addr or --routes")
	}
	if err := r.Print(ctx, header, []kot.Ticket{ticket}); err != nil {
		return err
	}
	zap.L().Info("test ticket routed", zap.String("group", printTestOpts.group))
	return nil
}
