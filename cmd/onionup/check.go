package main

import (
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/nao1215/onionup/internal/config"
	"github.com/nao1215/onionup/internal/socks"
	"github.com/nao1215/onionup/internal/torenv"
	"github.com/spf13/cobra"
)

// checkProbeTimeout bounds each local port probe.
const checkProbeTimeout = 3 * time.Second

// defaultSOCKSPort is tor's standard SOCKS port.
const defaultSOCKSPort = 9050

// NewCheckCmd creates the check command.
func NewCheckCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "check",
		Short: "Check whether a tor daemon is reachable",
		Long: `Check probes the tor daemon's control and SOCKS ports.

The control port check is a plain TCP probe. The SOCKS check performs
a real SOCKS5 handshake, so it can tell tor apart from any other
program listening on the port.

The command exits non-zero when either port fails its check.`,
		Args: cobra.NoArgs,
		RunE: runCheckCmd,
	}

	cmd.Flags().Int("control-port", config.DefaultControlPort, "Tor control port to probe")
	cmd.Flags().Int("socks-port", defaultSOCKSPort, "Tor SOCKS port to probe")

	return cmd
}

// runCheckCmd executes the check command.
func runCheckCmd(cmd *cobra.Command, _ []string) error {
	controlPort, _ := cmd.Flags().GetInt("control-port")
	socksPort, _ := cmd.Flags().GetInt("socks-port")
	out := cmd.OutOrStdout()

	failed := false

	if torenv.ProbeControlPort(controlPort, checkProbeTimeout) {
		fmt.Fprintf(out, "control port %d: listening\n", controlPort)
	} else {
		fmt.Fprintf(out, "control port %d: not reachable\n", controlPort)
		failed = true
	}

	checker, err := socks.NewChecker(net.JoinHostPort(config.DefaultControlHost, strconv.Itoa(socksPort)))
	if err != nil {
		return err
	}
	status := checker.Probe(cmd.Context())
	fmt.Fprintf(out, "SOCKS port %d: %s\n", socksPort, status)
	if status != socks.StatusOK {
		failed = true
	}

	if failed {
		return fmt.Errorf("tor daemon is not fully reachable: run 'onionup up' to start one")
	}
	return nil
}
