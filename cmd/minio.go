package cmd

import (
	"context"
	"fmt"
	"log"

	"github.com/minio/minio-go/v7"
	"github.com/spf13/cobra"

	"github.com/masambo/jukebox-joy-scan/config"
	"github.com/masambo/jukebox-joy-scan/storage"
)

var (
	minioPrefix string
	minioDelete bool
)

var minioCmd = &cobra.Command{
	Use:   "minio",
	Short: "MinIO存储桶管理",
	Long:  `查看和管理MinIO存储桶中的封面文件，支持按前缀列出和删除。`,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("开始连接MinIO服务器...")

		cfg := config.Load()
		fmt.Printf("MinIO配置: %s, Bucket: %s\n", cfg.MinioEndpoint, cfg.MinioBucket)

		if err := storage.InitMinio(); err != nil {
			log.Fatalf("无法连接到MinIO: %v", err)
		}
		fmt.Println("MinIO连接成功！")

		client := storage.GetMinioClient()
		ctx := context.Background()

		if minioDelete {
			if minioPrefix == "" {
				log.Fatal("删除操作需要指定前缀")
			}
			fmt.Printf("\n删除前缀下的文件: %s\n", minioPrefix)
			count := 0
			for object := range client.ListObjects(ctx, cfg.MinioBucket, minio.ListObjectsOptions{Prefix: minioPrefix, Recursive: true}) {
				if object.Err != nil {
					log.Fatalf("列出文件失败: %v", object.Err)
				}
				if err := client.RemoveObject(ctx, cfg.MinioBucket, object.Key, minio.RemoveObjectOptions{}); err != nil {
					log.Fatalf("删除文件失败 %s: %v", object.Key, err)
				}
				count++
			}
			fmt.Printf("已删除 %d 个文件\n", count)
		} else {
			fmt.Printf("\n列出存储桶中的文件 (前缀: %s)...\n", minioPrefix)
			var total int64
			count := 0
			for object := range client.ListObjects(ctx, cfg.MinioBucket, minio.ListObjectsOptions{Prefix: minioPrefix, Recursive: true}) {
				if object.Err != nil {
					log.Fatalf("列出文件失败: %v", object.Err)
				}
				fmt.Printf("  %s (%d bytes)\n", object.Key, object.Size)
				total += object.Size
				count++
			}
			fmt.Printf("共 %d 个文件, %d bytes\n", count, total)
		}

		fmt.Println("\nMinIO操作完成！")
	},
}

func init() {
	rootCmd.AddCommand(minioCmd)

	minioCmd.Flags().StringVarP(&minioPrefix, "prefix", "p", "", "按前缀过滤文件")
	minioCmd.Flags().BoolVarP(&minioDelete, "delete", "d", false, "删除指定前缀下的所有文件")

	minioCmd.Example = `  # 列出所有封面
  jukejoy minio -p "covers/"

  # 删除某家酒吧的全部封面
  jukejoy minio -d -p "covers/bar-3/"`
}
