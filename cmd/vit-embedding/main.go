// Command vit-embedding is an interactive tour of the Vision Transformer
// input-embedding pipeline: patchify, project, prepend a class token, add
// position encodings. It exists to make shapes and parameter flows
// concrete; there is no model behind it.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"k8s.io/klog/v2"
)

func main() {
	klog.InitFlags(nil)

	root := &cobra.Command{
		Use:   "vit-embedding",
		Short: "Walk through the ViT input-embedding pipeline step by step",
		Long: `vit-embedding demonstrates how a Vision Transformer turns a batch of
images into a sequence of embedding vectors: slice into patches, project
each patch linearly, prepend a learned class token, add a position
encoding. Every command prints the tensor shapes at each stage.`,
		SilenceUsage: true,
	}
	root.PersistentFlags().AddGoFlagSet(flag.CommandLine)

	root.AddCommand(walkthroughCmd())
	root.AddCommand(projectCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
