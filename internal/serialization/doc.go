// Package serialization implements the parameter bundle format used to
// persist trained networks.
//
// A bundle holds named float32 tensors together with their 3-axis shapes
// and a JSON header:
//
//	Format Structure:
//	  [0x00-0x03: Magic "TNET"]
//	  [0x04-0x07: Version (uint32 LE)]
//	  [0x08-0x0B: Flags (uint32 LE)]
//	  [0x0C-0x0F: Reserved]
//	  [0x10-0x17: Header size (uint64 LE)]
//	  [0x18-0x1F: Data size (uint64 LE)]
//	  [0x20-0x3F: SHA-256 of the data section]
//	  [Header: JSON metadata]
//	  [Tensor data: little-endian float32, 64-byte aligned]
//
// Only data and shape are stored. Gradients and optimizer moments are
// training state and are never written, so a loaded bundle is enough to
// run inference but starts any further training with fresh moments.
//
// Example usage:
//
//	var buf bytes.Buffer
//	if err := serialization.Write(&buf, entries, serialization.WriteOptions{Kind: "network"}); err != nil {
//	    log.Fatal(err)
//	}
//
//	bundle, err := serialization.Read(&buf, serialization.ReaderOptions{})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	w, ok := bundle.Lookup("0.weight")
package serialization
