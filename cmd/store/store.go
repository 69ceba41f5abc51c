package store

import (
	"context"
	"fmt"

	"github.com/aquaticgg/krepo/config/configkey"
	"github.com/aquaticgg/krepo/pkg/storage"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var storageTypeVar string
var fsPathVar string
var s3EndpointVar string
var s3BucketVar string
var s3AccessKeyVar string
var s3SecretKeyVar string

func init() {
	Store.PersistentFlags().StringVarP(&storageTypeVar, "type", "t", "", "The storage backend, fs or s3")
	Store.PersistentFlags().StringVar(&fsPathVar, "fs-path", "", "The root directory of the fs backend")
	Store.PersistentFlags().StringVarP(&s3EndpointVar, "s3-endpoint", "e", "", "The S3 endpoint, like minio.awesome.com:9000")
	Store.PersistentFlags().StringVarP(&s3BucketVar, "s3-bucket", "b", "", "The S3 bucket")
	Store.PersistentFlags().StringVarP(&s3AccessKeyVar, "s3-access-key", "a", "", "The S3 access key")
	Store.PersistentFlags().StringVarP(&s3SecretKeyVar, "s3-secret-key", "k", "", "The S3 secret key")
	_ = viper.BindPFlag(configkey.StorageType, Store.PersistentFlags().Lookup("type"))
	_ = viper.BindPFlag(configkey.StorageFSPath, Store.PersistentFlags().Lookup("fs-path"))
	_ = viper.BindPFlag(configkey.S3Endpoint, Store.PersistentFlags().Lookup("s3-endpoint"))
	_ = viper.BindPFlag(configkey.S3Bucket, Store.PersistentFlags().Lookup("s3-bucket"))
	_ = viper.BindPFlag(configkey.S3AccessKey, Store.PersistentFlags().Lookup("s3-access-key"))
	_ = viper.BindPFlag(configkey.S3SecretKey, Store.PersistentFlags().Lookup("s3-secret-key"))

	Store.AddCommand(&Initialize)
	Store.AddCommand(&Usage)
}

var Store = &cobra.Command{
	Use:              "storage",
	Short:            "Prepare and inspect the storage backend",
	TraverseChildren: true,
}

// Initialize creates the bucket or root directory the server expects to find.
var Initialize = cobra.Command{
	Use:   "init",
	Short: "Creates the storage root or bucket if it does not exist",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		switch t := viper.GetString(configkey.StorageType); t {
		case storage.TypeFileSystem:
			fs, err := storage.NewFileSystem(viper.GetString(configkey.StorageFSPath))
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Storage root ready at %s\n", fs.Root())
		case storage.TypeS3:
			cfg := storage.ObjectStoreConfigFromViper()
			created, err := storage.EnsureBucket(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			if created {
				logrus.Infof("Created bucket %s", cfg.Bucket)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Bucket %s ready at %s\n", cfg.Bucket, cfg.Endpoint)
		default:
			return fmt.Errorf("unknown storage type %q", t)
		}

		return nil
	},
}

var Usage = cobra.Command{
	Use:   "usage",
	Short: "Prints the total size of every stored artifact",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := context.WithCancel(cmd.Context())
		defer cancel()

		provider, err := storage.New(ctx)
		if err != nil {
			return err
		}
		defer provider.Close()

		total, err := provider.Usage(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%d bytes\n", total)

		return nil
	},
}
