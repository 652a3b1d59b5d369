package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"

	"smartwallet-gateway/config"
	"smartwallet-gateway/internal/adapter/openpayments"
	memStorage "smartwallet-gateway/internal/adapter/storage/memory"
	"smartwallet-gateway/internal/core/ports"
	"smartwallet-gateway/internal/service"
	"smartwallet-gateway/pkg/apperror"
	"smartwallet-gateway/pkg/logger"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

const (
	defaultClientWallet   = "https://ilp.interledger-test.dev/ian"
	defaultSenderWallet   = "https://ilp.interledger-test.dev/arely"
	defaultReceiverWallet = "https://ilp.interledger-test.dev/humberto"
	defaultKeyID          = "e42434cd-91a9-453e-b6fc-bd68e81823c1"
	defaultAmount         = "1000"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Send a payment from the sender wallet to the receiver wallet",
	Long: `Runs the whole transfer: resolves both wallets, creates an incoming
payment and a quote, then asks the sender to approve the outgoing payment in
the browser. Press Enter once approved to create the outgoing payment.`,
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		flags := cmd.Flags()
		configPath, _ := cmd.Root().PersistentFlags().GetString("config")
		level, _ := cmd.Root().PersistentFlags().GetString("log-level")
		clientWallet, _ := flags.GetString("client-wallet")
		keyID, _ := flags.GetString("key-id")
		keyPath, _ := flags.GetString("private-key")
		senderWallet, _ := flags.GetString("sender")
		receiverWallet, _ := flags.GetString("receiver")
		amount, _ := flags.GetString("amount")

		cfg, err := config.Load(configPath)
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}
		if flags.Changed("client-wallet") || cfg.OpenPayments.WalletAddressURL == "" {
			cfg.OpenPayments.WalletAddressURL = clientWallet
		}
		if flags.Changed("key-id") || cfg.OpenPayments.KeyID == "" {
			cfg.OpenPayments.KeyID = keyID
		}
		if flags.Changed("private-key") {
			cfg.OpenPayments.PrivateKeyPath = keyPath
			cfg.OpenPayments.PrivateKey = ""
		}

		log := logger.NewCLI(level)
		svc, err := buildService(cfg, log)
		if err != nil {
			return err
		}

		r := &runner{svc: svc, in: bufio.NewReader(os.Stdin), out: cmd.OutOrStdout()}
		_, err = r.run(cmd.Context(), senderWallet, receiverWallet, amount)
		return err
	},
}

func init() {
	runCmd.Flags().String("client-wallet", defaultClientWallet, "wallet address identifying this client to authorization servers")
	runCmd.Flags().String("key-id", defaultKeyID, "id of the client's registered signing key")
	runCmd.Flags().String("private-key", "private.key", "path to the client's Ed25519 private key (PEM)")
	runCmd.Flags().String("sender", defaultSenderWallet, "wallet address that pays")
	runCmd.Flags().String("receiver", defaultReceiverWallet, "wallet address that gets paid")
	runCmd.Flags().String("amount", defaultAmount, "amount in the receiver's minor units")
}

// buildService wires a transfer service that keeps no state beyond this
// process.
func buildService(cfg *config.Config, log zerolog.Logger) (ports.TransferService, error) {
	keyPEM, err := cfg.OpenPayments.PrivateKeyPEM()
	if err != nil {
		return nil, err
	}
	client, err := openpayments.New(openpayments.Options{
		WalletAddressURL: cfg.OpenPayments.WalletAddressURL,
		KeyID:            cfg.OpenPayments.KeyID,
		PrivateKeyPEM:    keyPEM,
		HTTPClient:       &http.Client{Timeout: cfg.OpenPayments.RequestTimeout},
		Logger:           log,
	})
	if err != nil {
		return nil, err
	}
	return newLocalService(client, log)
}

// newLocalService keeps the pending attempt in memory, its continue token
// sealed with a key that dies with the process.
func newLocalService(client ports.PaymentClient, log zerolog.Logger) (ports.TransferService, error) {
	encSvc, err := service.NewEphemeralAESEncryptionService()
	if err != nil {
		return nil, err
	}
	return service.NewTransferService(client, memStorage.NewTransferRepo(), nil, 0, encSvc, nil, log), nil
}

// runner drives one transfer and talks to the user.
type runner struct {
	svc ports.TransferService
	in  *bufio.Reader
	out io.Writer
}

func (r *runner) run(ctx context.Context, senderURL, receiverURL, amount string) (*ports.PreparedTransfer, error) {
	prepared, err := r.svc.PrepareTransfer(ctx, ports.TransferRequest{
		SenderWalletURL:   senderURL,
		ReceiverWalletURL: receiverURL,
		Amount:            amount,
	})
	if err != nil {
		return nil, err
	}
	r.print("Sender wallet", prepared.SenderWallet)
	r.print("Receiver wallet", prepared.ReceiverWallet)
	r.print("Incoming payment", prepared.IncomingPayment)
	r.print("Quote", prepared.Quote)
	r.print("Outgoing payment grant", prepared.Authorization)
	fmt.Fprintf(r.out, "\nApprove the payment in your browser:\n\n  %s\n\n", prepared.Authorization.InteractURL)

	for {
		fmt.Fprint(r.out, "Press Enter once the payment is approved... ")
		if _, err := r.in.ReadString('\n'); err != nil {
			return prepared, fmt.Errorf("waiting for approval: %w", err)
		}

		completed, err := r.svc.CompleteTransfer(ctx, prepared.TransferID, "")
		if apperror.HasCode(err, apperror.CodeGrantNotReady) {
			fmt.Fprintln(r.out, "The payment has not been approved yet.")
			continue
		}
		if err != nil {
			return prepared, err
		}
		r.print("Outgoing payment", completed.OutgoingPayment)
		fmt.Fprintln(r.out, "\nTransfer complete.")
		return prepared, nil
	}
}

func (r *runner) print(title string, v interface{}) {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		fmt.Fprintf(r.out, "%s: %v\n", title, v)
		return
	}
	fmt.Fprintf(r.out, "%s:\n%s\n", title, b)
}
