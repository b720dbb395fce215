// Package serialization implements the .fpn checkpoint format for trained operator sets.
//
// A .fpn file stores named weight matrices together with a JSON header describing the
// model, the training run and, optionally, the training history:
//
//	Format Structure:
//	  [64 bytes: fixed header]
//	    0x00-0x03: Magic "FPNW"
//	    0x04-0x07: Version (uint32 LE)
//	    0x08-0x0B: Flags (uint32 LE)
//	    0x0C-0x0F: Reserved
//	    0x10-0x17: Header size (uint64 LE)
//	    0x18-0x1F: Data size (uint64 LE)
//	    0x20-0x3F: SHA-256 checksum of header JSON + data
//	  [Header: JSON metadata]
//	  [Tensor data: little-endian float64 or float16, 64-byte aligned]
//
// Example usage:
//
//	header := serialization.Header{RunID: runID, Model: spec}
//	tensors := serialization.FromParameters(model.Parameters())
//	if err := serialization.Save("FPN_mnist_weights.fpn", tensors, header, serialization.DTypeFloat64); err != nil {
//	    klog.Fatalf("%+v", err)
//	}
//
//	f, err := serialization.Load("FPN_mnist_weights.fpn", serialization.ReaderOptions{})
//	if err != nil {
//	    klog.Fatalf("%+v", err)
//	}
//	if err := f.AssignTo(model.Parameters()); err != nil {
//	    klog.Fatalf("%+v", err)
//	}
package serialization
