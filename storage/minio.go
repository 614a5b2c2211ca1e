package storage

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/masambo/jukebox-joy-scan/config"
	"github.com/masambo/jukebox-joy-scan/logger"
)

var minioClient *minio.Client

// InitMinio 初始化 MinIO 客户端并确保封面存储桶存在
func InitMinio() error {
	cfg := config.Load()

	logger.Info("正在连接 MinIO 服务器...",
		logger.String("endpoint", cfg.MinioEndpoint),
		logger.String("bucket", cfg.MinioBucket))

	client, err := minio.New(cfg.MinioEndpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.MinioAccessKey, cfg.MinioSecretKey, ""),
		Secure: cfg.MinioUseSSL,
		Region: cfg.MinioRegion,
	})
	if err != nil {
		return fmt.Errorf("创建 MinIO 客户端失败: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	exists, err := client.BucketExists(ctx, cfg.MinioBucket)
	if err != nil {
		return fmt.Errorf("检查存储桶失败: %v", err)
	}
	if !exists {
		err = client.MakeBucket(ctx, cfg.MinioBucket, minio.MakeBucketOptions{
			Region: cfg.MinioRegion,
		})
		if err != nil {
			return fmt.Errorf("创建存储桶失败: %v", err)
		}
		logger.Info("成功创建存储桶", logger.String("bucket", cfg.MinioBucket))
	}

	minioClient = client
	logger.Info("MinIO 客户端初始化成功")
	return nil
}

// GetMinioClient 获取 MinIO 客户端实例
func GetMinioClient() *minio.Client {
	return minioClient
}

// UploadCover 上传专辑封面并返回其公开地址。
// 对象按酒吧和专辑命名，重新上传会覆盖旧封面。
func UploadCover(ctx context.Context, barID, albumID int64, contentType string, data []byte) (string, error) {
	if minioClient == nil {
		return "", fmt.Errorf("MinIO client not initialized")
	}
	cfg := config.Load()

	objectName := fmt.Sprintf("covers/bar-%d/album-%d%s", barID, albumID, extForContentType(contentType))
	_, err := minioClient.PutObject(ctx, cfg.MinioBucket, objectName, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return "", fmt.Errorf("上传封面失败: %v", err)
	}

	url := strings.TrimRight(cfg.MinioPublicURL, "/") + "/" + objectName
	logger.Info("封面上传成功",
		logger.Int64("albumId", albumID),
		logger.String("object", objectName))
	return url, nil
}

func extForContentType(contentType string) string {
	switch contentType {
	case "image/png":
		return ".png"
	case "image/webp":
		return ".webp"
	case "image/gif":
		return ".gif"
	default:
		return ".jpg"
	}
}
