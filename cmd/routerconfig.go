package main

import (
	"github.com/spf13/cobra"

	"headway.dev/transit"
	"headway.dev/transit/model"
)

var routerConfigOutput string

var routerConfigCmd = &cobra.Command{
	Use:   "router-config",
	Short: "Generates OpenTripPlanner realtime updater config from the realtime feeds of a (filtered) catalog",
	Args:  cobra.NoArgs,
	RunE:  routerConfig,
}

func init() {
	routerConfigCmd.Flags().StringVarP(&routerConfigOutput, "output", "o", "", "Write router config here instead of stdout")
	rootCmd.AddCommand(routerConfigCmd)
}

func routerConfig(cmd *cobra.Command, args []string) error {
	r, err := openCatalog(cmd.Context())
	if err != nil {
		return err
	}

	descs, err := r.ReadAll()
	if err != nil {
		return err
	}

	return writeRouterConfig(descs, routerConfigOutput)
}

// Writes updater config for every realtime row in descs. Rows with a
// realtime data type but unrecognized entity type are an error.
func writeRouterConfig(descs []*model.FeedDescriptor, path string) error {
	realtime := []*model.FeedDescriptor{}
	for _, d := range descs {
		if d.DataType == model.DataTypeRealtime {
			realtime = append(realtime, d)
		}
	}

	updaters, err := transit.EmitUpdaters(realtime)
	if err != nil {
		return err
	}

	out, err := createOutput(path)
	if err != nil {
		return err
	}
	defer out.Close()

	if err := transit.WriteRouterConfig(out, updaters); err != nil {
		return err
	}

	log.Info().Int("updaters", len(updaters)).Msg("wrote router config")

	return out.Close()
}
