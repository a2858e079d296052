// Command keygen writes an RSA key pair for the token service.
package main

import (
	"flag"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/snugkisses/authtokens/internal/cryptox"
	"github.com/snugkisses/authtokens/internal/keygen"
	"github.com/snugkisses/authtokens/internal/shared"
)

// promptPassphrase is swapped in tests that cannot attach a terminal.
var promptPassphrase = keygen.PromptPassphrase

func main() {
	if err := run(os.Args[1:], os.Stdout, os.Stderr); err != nil {
		log.Fatal(err)
	}
}

// run returns instead of exiting so the passphrase wipe runs on every path.
func run(args []string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("keygen", flag.ContinueOnError)
	fs.SetOutput(stderr)
	out := fs.String("o", ".", "output directory")
	bits := fs.Int("b", cryptox.DefaultRSABits, "RSA key size in bits")
	refresh := fs.Bool("refresh", false, "also write a separate refresh.pem signing key")
	encrypt := fs.Bool("p", false, "prompt for a passphrase to encrypt the private keys")
	serviceKey := fs.Bool("service-key", false, "also print a random INTERNAL_SERVICE_KEY")
	if err := fs.Parse(args); err != nil {
		return err
	}

	var passphrase []byte
	if *encrypt {
		var err error
		passphrase, err = promptPassphrase(stderr, int(os.Stdin.Fd()))
		if err != nil {
			return fmt.Errorf("passphrase: %w", err)
		}
		defer shared.WipeByteArray(passphrase)
	}

	res, err := keygen.Generate(keygen.Options{OutDir: *out, Bits: *bits, Refresh: *refresh}, passphrase)
	if err != nil {
		return fmt.Errorf("keygen: %w", err)
	}

	fmt.Fprintf(stderr, "wrote %s and %s\n", res.PrivatePath, res.PublicPath)
	keygen.PrintEnv(stdout, res, len(passphrase) > 0)

	if *serviceKey {
		k, err := keygen.NewServiceKey()
		if err != nil {
			return fmt.Errorf("service key: %w", err)
		}
		fmt.Fprintf(stdout, "INTERNAL_SERVICE_KEY=%s\n", k)
	}
	return nil
}
