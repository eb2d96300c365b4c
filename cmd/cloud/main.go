// Command cloud is the private cloud CLI: it manages the local keypair and
// pushes/pulls files to and from the storage server.
package main

import (
	"bufio"
	"context"
	"crypto/ed25519"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/mr-tron/base58"

	"github.com/DezzK/private-cloud/internal/client"
	"github.com/DezzK/private-cloud/internal/config"
	"github.com/DezzK/private-cloud/internal/keystore"
	"github.com/DezzK/private-cloud/internal/platform/privacylog"
)

const passphraseEnv = "CLOUD_KEY_PASSPHRASE"

func usage() {
	fmt.Fprintf(os.Stderr, `Usage: cloud [-config path] <command> [args]

Commands:
  regenerate-keys        Generate a new access keypair. The previous keypair is lost!
  restore-keys           Restore a keypair from its recovery mnemonic (read from stdin).
  push <path>            Upload a file to the private cloud.
  pull <filename>        Download a file from the private cloud.

The keystore passphrase is read from the %s environment variable.
`, passphraseEnv)
}

func main() {
	configPath := flag.String("config", "", "Path to client config YAML (optional)")
	flag.Usage = usage
	flag.Parse()
	args := flag.Args()
	if len(args) == 0 {
		usage()
		os.Exit(2)
	}

	logger := slog.New(privacylog.WrapHandler(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn})))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.LoadClient(*configPath)
	if err != nil {
		fatal(err)
	}
	store := keystore.NewFileStore(cfg.KeystorePath)
	passphrase := os.Getenv(passphraseEnv)

	switch args[0] {
	case "regenerate-keys":
		mnemonic, pub, err := store.Regenerate(passphrase)
		if err != nil {
			fatal(err)
		}
		fmt.Println("New keypair generated successfully!")
		fmt.Printf("Identity: %s\n", base58.Encode(pub))
		fmt.Println("Recovery mnemonic (write it down, it is shown only once):")
		fmt.Println(mnemonic)

	case "restore-keys":
		fmt.Println("Paste the recovery mnemonic and press Enter:")
		line, err := bufio.NewReader(os.Stdin).ReadString('\n')
		if err != nil {
			fatal(err)
		}
		pub, err := store.Restore(line, passphrase)
		if err != nil {
			fatal(err)
		}
		fmt.Println("Keypair restored successfully!")
		fmt.Printf("Identity: %s\n", base58.Encode(pub))

	case "push":
		if len(args) != 2 {
			usage()
			os.Exit(2)
		}
		priv, transfer := mustUnlock(store, passphrase, cfg)
		if err := transfer.Push(ctx, priv, args[1]); err != nil {
			fatal(err)
		}
		fmt.Println("File pushed successfully")

	case "pull":
		if len(args) != 2 {
			usage()
			os.Exit(2)
		}
		priv, transfer := mustUnlock(store, passphrase, cfg)
		dest, err := transfer.Pull(ctx, priv, args[1], cfg.DownloadDir)
		if err != nil {
			fatal(err)
		}
		fmt.Printf("File saved to %s\n", dest)

	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n", args[0])
		usage()
		os.Exit(2)
	}
}

func mustUnlock(store *keystore.FileStore, passphrase string, cfg config.Client) (priv ed25519.PrivateKey, transfer *client.Transfer) {
	key, err := store.SigningKey(passphrase)
	if err != nil {
		fatal(err)
	}
	transfer, err = client.New(cfg.ServerURL, slog.Default())
	if err != nil {
		fatal(err)
	}
	return key, transfer
}

func fatal(err error) {
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	os.Exit(1)
}
