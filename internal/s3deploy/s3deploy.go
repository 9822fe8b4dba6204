package s3deploy

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/cloudfront"
	"github.com/aws/aws-sdk-go-v2/service/cloudfront/types"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/jgxilos/wdd231/internal/utils"
)

// MaxConcurrentUploads bounds the parallel S3 uploads of a deploy.
const MaxConcurrentUploads = 8

// Uploader is the part of the S3 upload manager a deploy uses.
type Uploader interface {
	Upload(ctx context.Context, input *s3.PutObjectInput, opts ...func(*manager.Uploader)) (*manager.UploadOutput, error)
}

// DistributionAPI is the part of the CloudFront client a deploy uses.
type DistributionAPI interface {
	cloudfront.ListDistributionsAPIClient
	CreateDistribution(ctx context.Context, params *cloudfront.CreateDistributionInput, optFns ...func(*cloudfront.Options)) (*cloudfront.CreateDistributionOutput, error)
}

// Deployer publishes a built site to S3 and fronts it with CloudFront.
type Deployer struct {
	uploader   Uploader
	cloudfront DistributionAPI
	logger     *zap.Logger
	now        func() time.Time
}

// New builds a deployer from the default AWS configuration chain.
func New(ctx context.Context, logger *zap.Logger) (*Deployer, error) {
	cfg, err := config.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS SDK config: %w", err)
	}
	return NewWithClients(manager.NewUploader(s3.NewFromConfig(cfg)), cloudfront.NewFromConfig(cfg), logger), nil
}

// NewWithClients builds a deployer over explicit clients.
func NewWithClients(uploader Uploader, cf DistributionAPI, logger *zap.Logger) *Deployer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Deployer{uploader: uploader, cloudfront: cf, logger: logger, now: time.Now}
}

// DeploySite uploads every file below outputDir to bucket, keyed by its
// slash-separated relative path.
func (d *Deployer) DeploySite(ctx context.Context, bucketName, outputDir string) error {
	fmt.Printf("Starting deployment to S3 bucket: %s...\n", bucketName)

	files, err := utils.ListFiles(outputDir)
	if err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(MaxConcurrentUploads)
	for _, key := range files {
		g.Go(func() error {
			return d.upload(gctx, bucketName, outputDir, key)
		})
	}
	if err := g.Wait(); err != nil {
		return fmt.Errorf("deployment failed: %w", err)
	}

	d.logger.Info("deployment complete", zap.String("bucket", bucketName), zap.Int("files", len(files)))
	fmt.Println("Deployment complete!")
	return nil
}

func (d *Deployer) upload(ctx context.Context, bucketName, outputDir, key string) error {
	path := filepath.Join(outputDir, filepath.FromSlash(key))
	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open file %s: %w", path, err)
	}
	defer file.Close()

	_, err = d.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(bucketName),
		Key:         aws.String(key),
		Body:        file,
		ContentType: aws.String(utils.ContentType(key)),
	})
	if err != nil {
		return fmt.Errorf("failed to upload %s to S3: %w", key, err)
	}

	fmt.Printf("Uploaded %s to s3://%s/%s\n", key, bucketName, key)
	return nil
}

func originDomain(bucketName string) string {
	return fmt.Sprintf("%s.s3.amazonaws.com", bucketName)
}

// cachingOptimizedPolicy is the AWS managed CachingOptimized cache policy.
const cachingOptimizedPolicy = "658327ea-f89d-4fab-a63d-7e88639e58f6"

// distributionConfig fronts the bucket over HTTPS with compressed, cached
// responses and index.html as the root page.
func distributionConfig(bucketName, callerRef string) *types.DistributionConfig {
	return &types.DistributionConfig{
		CallerReference:   aws.String(callerRef),
		Comment:           aws.String("Chamber site served from s3://" + bucketName),
		Enabled:           aws.Bool(true),
		HttpVersion:       types.HttpVersionHttp2,
		IsIPV6Enabled:     aws.Bool(true),
		PriceClass:        types.PriceClassPriceClass100,
		DefaultRootObject: aws.String("index.html"),
		DefaultCacheBehavior: &types.DefaultCacheBehavior{
			TargetOriginId:       aws.String(bucketName),
			ViewerProtocolPolicy: types.ViewerProtocolPolicyRedirectToHttps,
			CachePolicyId:        aws.String(cachingOptimizedPolicy),
			Compress:             aws.Bool(true),
		},
		Origins: &types.Origins{
			Quantity: aws.Int32(1),
			Items: []types.Origin{{
				Id:             aws.String(bucketName),
				DomainName:     aws.String(originDomain(bucketName)),
				S3OriginConfig: &types.S3OriginConfig{OriginAccessIdentity: aws.String("")},
			}},
		},
		Restrictions: &types.Restrictions{
			GeoRestriction: &types.GeoRestriction{RestrictionType: types.GeoRestrictionTypeNone, Quantity: aws.Int32(0)},
		},
		ViewerCertificate: &types.ViewerCertificate{
			CloudFrontDefaultCertificate: aws.Bool(true),
			CertificateSource:            types.CertificateSourceCloudfront,
		},
	}
}

// CreateCloudFrontDistribution returns the distribution already serving
// bucketName, creating one if none exists.
func (d *Deployer) CreateCloudFrontDistribution(ctx context.Context, bucketName string) (string, error) {
	distID, err := d.GetCloudFrontDistributionID(ctx, bucketName)
	if err != nil {
		return "", fmt.Errorf("failed to check for existing CloudFront distribution: %w", err)
	}
	if distID != "" {
		d.logger.Info("cloudfront distribution exists", zap.String("bucket", bucketName), zap.String("id", distID))
		return distID, nil
	}

	ref := fmt.Sprintf("chamber-site-%d", d.now().Unix())
	input := &cloudfront.CreateDistributionInput{DistributionConfig: distributionConfig(bucketName, ref)}

	resp, err := d.cloudfront.CreateDistribution(ctx, input)
	if err != nil {
		return "", fmt.Errorf("failed to create CloudFront distribution: %w", err)
	}

	id := aws.ToString(resp.Distribution.Id)
	d.logger.Info("cloudfront distribution created",
		zap.String("id", id), zap.String("domain", aws.ToString(resp.Distribution.DomainName)))
	return id, nil
}

// GetCloudFrontDistributionID finds a distribution with bucketName as an
// origin. It returns "" when there is none.
func (d *Deployer) GetCloudFrontDistributionID(ctx context.Context, bucketName string) (string, error) {
	want := originDomain(bucketName)
	paginator := cloudfront.NewListDistributionsPaginator(d.cloudfront, &cloudfront.ListDistributionsInput{})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return "", fmt.Errorf("failed to list CloudFront distributions: %w", err)
		}
		if page.DistributionList == nil {
			continue
		}
		for _, dist := range page.DistributionList.Items {
			if dist.Origins == nil {
				continue
			}
			for _, origin := range dist.Origins.Items {
				if aws.ToString(origin.DomainName) == want {
					return aws.ToString(dist.Id), nil
				}
			}
		}
	}
	return "", nil
}
