package storage

import (
	"context"
	"errors"
	"io"
	"regexp"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeS3 struct {
	puts    []*s3.PutObjectInput
	bodies  []string
	deleted []string
	failPut bool
}

func (f *fakeS3) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if f.failPut {
		return nil, errors.New("access denied")
	}
	data, _ := io.ReadAll(in.Body)
	f.puts = append(f.puts, in)
	f.bodies = append(f.bodies, string(data))
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeS3) DeleteObject(_ context.Context, in *s3.DeleteObjectInput, _ ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
	f.deleted = append(f.deleted, aws.ToString(in.Key))
	return &s3.DeleteObjectOutput{}, nil
}

func (f *fakeS3) HeadBucket(context.Context, *s3.HeadBucketInput, ...func(*s3.Options)) (*s3.HeadBucketOutput, error) {
	return &s3.HeadBucketOutput{}, nil
}

var avatarKeyPattern = regexp.MustCompile(`^users/u1/avatar/[0-9a-f-]{36}\.png$`)

func TestAvatarKey(t *testing.T) {
	k1 := AvatarKey("u1", "Me.PNG")
	k2 := AvatarKey("u1", "Me.PNG")
	assert.Regexp(t, avatarKeyPattern, k1)
	assert.NotEqual(t, k1, k2, "every upload gets a fresh key")
}

func TestUploadAvatar(t *testing.T) {
	fake := &fakeS3{}
	u := &S3Uploader{client: fake, bucket: "showcase-media", baseURL: "https://cdn.example.com/"}

	res, err := u.UploadAvatar(context.Background(), strings.NewReader("png-bytes"), 9, "u1", "me.png")
	require.NoError(t, err)
	assert.Regexp(t, avatarKeyPattern, res.Key)
	assert.Equal(t, "https://cdn.example.com/"+res.Key, res.URL)
	assert.Equal(t, int64(9), res.Size)

	require.Len(t, fake.puts, 1)
	assert.Equal(t, "image/png", aws.ToString(fake.puts[0].ContentType))
	assert.Equal(t, "showcase-media", aws.ToString(fake.puts[0].Bucket))
	assert.Equal(t, "png-bytes", fake.bodies[0])
}

func TestUploadAvatarRejectsUnsupportedType(t *testing.T) {
	fake := &fakeS3{}
	u := &S3Uploader{client: fake, bucket: "b", baseURL: "https://cdn"}
	_, err := u.UploadAvatar(context.Background(), strings.NewReader("x"), 1, "u1", "me.bmp")
	assert.Error(t, err)
	assert.Empty(t, fake.puts)
}

func TestUploadAvatarWrapsS3Errors(t *testing.T) {
	u := &S3Uploader{client: &fakeS3{failPut: true}, bucket: "b", baseURL: "https://cdn"}
	_, err := u.UploadAvatar(context.Background(), strings.NewReader("x"), 1, "u1", "me.jpg")
	assert.ErrorContains(t, err, "failed to upload to S3")
}

func TestDeleteFile(t *testing.T) {
	fake := &fakeS3{}
	u := &S3Uploader{client: fake, bucket: "b"}
	require.NoError(t, u.DeleteFile(context.Background(), "users/u1/avatar/x.png"))
	assert.Equal(t, []string{"users/u1/avatar/x.png"}, fake.deleted)
}
