package s3deploy

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/cloudfront"
	"github.com/aws/aws-sdk-go-v2/service/cloudfront/types"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeUploader struct {
	mu      sync.Mutex
	objects map[string]string
	types   map[string]string
	failKey string
}

func (f *fakeUploader) Upload(_ context.Context, in *s3.PutObjectInput, _ ...func(*manager.Uploader)) (*manager.UploadOutput, error) {
	key := aws.ToString(in.Key)
	if key == f.failKey {
		return nil, errors.New("access denied")
	}
	body, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.objects[key] = string(body)
	f.types[key] = aws.ToString(in.ContentType)
	return &manager.UploadOutput{}, nil
}

type fakeCloudFront struct {
	pages   []*types.DistributionList
	calls   int
	created *cloudfront.CreateDistributionInput
}

func (f *fakeCloudFront) ListDistributions(_ context.Context, in *cloudfront.ListDistributionsInput, _ ...func(*cloudfront.Options)) (*cloudfront.ListDistributionsOutput, error) {
	page := f.pages[f.calls]
	f.calls++
	return &cloudfront.ListDistributionsOutput{DistributionList: page}, nil
}

func (f *fakeCloudFront) CreateDistribution(_ context.Context, in *cloudfront.CreateDistributionInput, _ ...func(*cloudfront.Options)) (*cloudfront.CreateDistributionOutput, error) {
	f.created = in
	return &cloudfront.CreateDistributionOutput{Distribution: &types.Distribution{
		Id:         aws.String("ENEW"),
		DomainName: aws.String("dnew.cloudfront.net"),
	}}, nil
}

func distribution(id, bucket string) types.DistributionSummary {
	return types.DistributionSummary{
		Id: aws.String(id),
		Origins: &types.Origins{
			Quantity: aws.Int32(1),
			Items:    []types.Origin{{DomainName: aws.String(bucket + ".s3.amazonaws.com")}},
		},
	}
}

func writeSite(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	for name, body := range map[string]string{
		"index.html":        "<h1>home</h1>",
		"css/style.css":     "body{}",
		"data/members.json": "{}",
	} {
		p := filepath.Join(dir, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
		require.NoError(t, os.WriteFile(p, []byte(body), 0o644))
	}
	return dir
}

func TestDeploySiteUploadsEveryFile(t *testing.T) {
	up := &fakeUploader{objects: map[string]string{}, types: map[string]string{}}
	d := NewWithClients(up, &fakeCloudFront{}, nil)

	require.NoError(t, d.DeploySite(context.Background(), "chamber", writeSite(t)))

	assert.Equal(t, map[string]string{
		"index.html":        "<h1>home</h1>",
		"css/style.css":     "body{}",
		"data/members.json": "{}",
	}, up.objects)
	assert.Contains(t, up.types["index.html"], "text/html")
	assert.Contains(t, up.types["data/members.json"], "application/json")
}

func TestDeploySiteReportsFailedUpload(t *testing.T) {
	up := &fakeUploader{objects: map[string]string{}, types: map[string]string{}, failKey: "css/style.css"}
	d := NewWithClients(up, &fakeCloudFront{}, nil)

	err := d.DeploySite(context.Background(), "chamber", writeSite(t))

	assert.ErrorContains(t, err, "failed to upload css/style.css")
}

func TestExistingDistributionIsReused(t *testing.T) {
	cf := &fakeCloudFront{pages: []*types.DistributionList{
		{IsTruncated: aws.Bool(true), NextMarker: aws.String("p2"), Items: []types.DistributionSummary{distribution("EOTHER", "other")}},
		{IsTruncated: aws.Bool(false), Items: []types.DistributionSummary{distribution("EMINE", "chamber")}},
	}}
	d := NewWithClients(&fakeUploader{}, cf, nil)

	id, err := d.CreateCloudFrontDistribution(context.Background(), "chamber")

	require.NoError(t, err)
	assert.Equal(t, "EMINE", id)
	assert.Nil(t, cf.created)
}

func TestDistributionCreatedWhenMissing(t *testing.T) {
	cf := &fakeCloudFront{pages: []*types.DistributionList{{IsTruncated: aws.Bool(false)}}}
	d := NewWithClients(&fakeUploader{}, cf, nil)
	d.now = func() time.Time { return time.Unix(1700000000, 0) }

	id, err := d.CreateCloudFrontDistribution(context.Background(), "chamber")

	require.NoError(t, err)
	assert.Equal(t, "ENEW", id)
	require.NotNil(t, cf.created)
	dc := cf.created.DistributionConfig
	assert.Equal(t, "chamber-site-1700000000", aws.ToString(dc.CallerReference))
	assert.Equal(t, "index.html", aws.ToString(dc.DefaultRootObject))
	assert.Equal(t, types.ViewerProtocolPolicyRedirectToHttps, dc.DefaultCacheBehavior.ViewerProtocolPolicy)
	assert.Equal(t, cachingOptimizedPolicy, aws.ToString(dc.DefaultCacheBehavior.CachePolicyId))
	assert.True(t, aws.ToBool(dc.DefaultCacheBehavior.Compress))
	assert.Equal(t, "chamber.s3.amazonaws.com", aws.ToString(dc.Origins.Items[0].DomainName))
}
