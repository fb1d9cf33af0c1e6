// Package main writes a certificate authority and a server certificate for
// running missiond over HTTPS. An existing CA can be reused with --ca-cert
// and --ca-key.
package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/pflag"

	"github.com/fieldops/missiond/internal/certgen"
)

func main() {
	if err := run(os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, "certgen:", err)
		os.Exit(1)
	}
}

func run(args []string, out io.Writer) error {
	fs := pflag.NewFlagSet("certgen", pflag.ContinueOnError)
	dir := fs.String("dir", "certs", "output directory")
	hosts := fs.StringSlice("hosts", []string{"localhost", "127.0.0.1"}, "server host names and IPs")
	caCert := fs.String("ca-cert", "", "existing CA certificate to sign with")
	caKey := fs.String("ca-key", "", "private key of --ca-cert")
	validity := fs.Duration("validity", 365*24*time.Hour, "server certificate lifetime")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if (*caCert == "") != (*caKey == "") {
		return fmt.Errorf("--ca-cert and --ca-key must be set together")
	}

	var ca *certgen.CA
	if *caCert != "" {
		loaded, err := certgen.LoadCA(*caCert, *caKey)
		if err != nil {
			return err
		}
		ca = loaded
	} else {
		generated, certPEM, keyPEM, err := certgen.GenerateCA("missiond CA", 10*365*24*time.Hour)
		if err != nil {
			return err
		}
		if err := certgen.WritePair(*dir, "ca", certPEM, keyPEM); err != nil {
			return err
		}
		ca = generated
	}

	certPEM, keyPEM, err := ca.GenerateServerCertificate(*hosts, *validity)
	if err != nil {
		return err
	}
	if err := certgen.WritePair(*dir, "server", certPEM, keyPEM); err != nil {
		return err
	}

	fmt.Fprintf(out, "✅ Certificates written to %s; start the server with --tls-cert-file %s --tls-key-file %s\n",
		*dir, filepath.Join(*dir, "server.crt"), filepath.Join(*dir, "server.key"))
	return nil
}
