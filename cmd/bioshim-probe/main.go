package main

import (
	"fmt"
	"os"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/candlefinance/tlsbio/biobridge"
	"github.com/candlefinance/tlsbio/bytebuf"
)

var (
	maxPreservedCapacity int
	verbose              bool
)

var rootCmd = &cobra.Command{
	Use:   "bioshim-probe",
	Short: "Exercise the BIO bridge shim without a TLS engine or socket",
	Long: `bioshim-probe drives a biobridge.Shim through the same
write/extract/receive/read sequence a TLS engine and its host would, so
the bridge's behavior can be inspected outside of an actual handshake.`,
}

var probeCmd = &cobra.Command{
	Use:   "probe",
	Short: "Run a scripted write/extract/receive/read sequence and report the outcome",
	RunE:  runProbe,
}

func init() {
	log.SetFormatter(&log.TextFormatter{FullTimestamp: true})

	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	probeCmd.Flags().IntVar(&maxPreservedCapacity, "max-preserved-capacity", 16*1024,
		"outbound backing storage cap retained across extractions (bytes); -1 for unbounded")

	rootCmd.AddCommand(probeCmd)
}

func runProbe(cmd *cobra.Command, args []string) error {
	if verbose {
		log.SetLevel(log.DebugLevel)
	}

	shim := biobridge.NewShim(bytebuf.HeapAllocator{}, maxPreservedCapacity)
	defer shim.Close()

	bio := shim.RetainedBIO()
	defer bio.Release()

	payload := []byte("hello from the probe\n")
	n := bio.Write(payload)
	log.WithFields(log.Fields{"requested": len(payload), "accepted": n}).Info("wrote outbound ciphertext")

	out, ok := shim.OutboundCiphertext()
	if !ok {
		return fmt.Errorf("expected an extractable outbound buffer, got none")
	}
	log.WithFields(log.Fields{"bytes": out.Len(), "capacity": out.Capacity()}).Info("extracted outbound ciphertext")

	inbound := bytebuf.HeapAllocator{}.Allocate(len(payload))
	inbound.Write(payload)
	shim.ReceiveFromNetwork(inbound)

	dst := make([]byte, len(payload))
	read := bio.Read(dst)
	if read != len(payload) {
		return fmt.Errorf("read %d bytes back, want %d", read, len(payload))
	}
	log.WithField("bytes", read).Info("drained inbound ciphertext")

	fmt.Printf("outbound extracted: %q\n", out.String())
	fmt.Printf("inbound drained:    %q\n", dst)
	return nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		log.Error(err)
		os.Exit(1)
	}
}
