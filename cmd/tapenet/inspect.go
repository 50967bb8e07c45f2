package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"sort"
	"text/tabwriter"

	"github.com/pkg/errors"

	"github.com/born-ml/tapenet/internal/serialization"
)

func runInspect(args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("inspect", flag.ContinueOnError)
	verify := fs.Bool("verify", true, "Hash the data section and compare it with the stored checksum")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return errors.New("usage: tapenet inspect [-verify=false] <bundle>")
	}
	path := fs.Arg(0)

	f, err := os.Open(path)
	if err != nil {
		return errors.Wrap(err, "open bundle")
	}
	defer f.Close()

	header, err := serialization.ReadHeader(f)
	if err != nil {
		return errors.Wrapf(err, "%s", path)
	}
	fmt.Fprintf(stdout, "bundle:   %s\n", header.BundleID)
	fmt.Fprintf(stdout, "kind:     %s (format %d, written by %s)\n", header.Kind, header.FormatVersion, header.Version)
	fmt.Fprintf(stdout, "created:  %s\n", header.CreatedAt.Format("2006-01-02 15:04:05 MST"))
	if len(header.InputShape) > 0 {
		fmt.Fprintf(stdout, "input:    %v\n", header.InputShape)
	}

	keys := make([]string, 0, len(header.Metadata))
	for k := range header.Metadata {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(stdout, "meta:     %s=%s\n", k, header.Metadata[k])
	}

	tw := tabwriter.NewWriter(stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "\nNAME\tSHAPE\tOFFSET\tBYTES")
	var total int64
	for _, t := range header.Tensors {
		fmt.Fprintf(tw, "%s\t%v\t%d\t%d\n", t.Name, t.Shape, t.Offset, t.Size)
		total += t.Size
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	fmt.Fprintf(stdout, "%d tensors, %d bytes\n", len(header.Tensors), total)

	if !*verify {
		return nil
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return err
	}
	_, sum, err := serialization.VerifyChecksum(f)
	if err != nil {
		return errors.Wrap(err, "verify")
	}
	fmt.Fprintf(stdout, "checksum: ok (sha256 %s)\n", sum)
	return nil
}
