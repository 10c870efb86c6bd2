package main

import (
	"fmt"
	"os"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
	"k8s.io/klog/v2"

	vitembed "github.com/scttfrdmn/vit-embedding"
)

func projectCmd() *cobra.Command {
	opts := walkthroughOptions{
		batch:    1,
		channels: 3,
		height:   28,
		width:    28,
		patch:    7,
		embedDim: 50,
	}

	cmd := &cobra.Command{
		Use:   "project",
		Short: "PCA-project one image's embedding sequence to 2D",
		Long: `project runs a single synthetic image through the pipeline, then uses
PCA to squash each position's d_emb-wide vector down to two coordinates.
With a 7-pixel patch on a 28x28 image that is 16 patches plus the class
token: 17 points you can actually look at.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runProject(opts)
		},
	}

	cmd.Flags().IntVar(&opts.channels, "channels", opts.channels, "image channels")
	cmd.Flags().IntVar(&opts.height, "height", opts.height, "image height in pixels")
	cmd.Flags().IntVar(&opts.width, "width", opts.width, "image width in pixels")
	cmd.Flags().IntVar(&opts.patch, "patch", opts.patch, "patch side length (square patches)")
	cmd.Flags().IntVar(&opts.embedDim, "d-emb", opts.embedDim, "embedding dimension")

	return cmd
}

func runProject(opts walkthroughOptions) error {
	ie, err := vitembed.NewInputEmbedding(vitembed.Config{
		Patch:      vitembed.SquarePatch(opts.patch),
		EmbedDim:   opts.embedDim,
		InChannels: opts.channels,
	})
	if err != nil {
		return err
	}

	images := syntheticImages(1, opts.channels, opts.height, opts.width)
	out, err := ie.Forward(images)
	if err != nil {
		return err
	}
	seqLen, embedDim := out.Dim(1), out.Dim(2)
	klog.V(1).Infof("embedded one image to %s", out)

	// The batch has one sample, so its (S, d_emb) sequence is the whole
	// buffer viewed as rank 2.
	points, err := vitembed.PCA(out.Reshape(seqLen, embedDim))
	if err != nil {
		return err
	}

	gridW := opts.width / opts.patch
	fmt.Printf("PCA of %d positions (%d-dimensional -> 2D):\n\n", seqLen, embedDim)
	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"Position", "Token", "PC1", "PC2"})
	for s := 0; s < seqLen; s++ {
		label := "class token"
		if s > 0 {
			label = fmt.Sprintf("patch (%d,%d)", (s-1)/gridW, (s-1)%gridW)
		}
		table.Append([]string{
			fmt.Sprintf("%d", s),
			label,
			fmt.Sprintf("%+.4f", points.At(s, 0)),
			fmt.Sprintf("%+.4f", points.At(s, 1)),
		})
	}
	table.Render()
	return nil
}
