package blob

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
)

// Cloudinary uploads to a Cloudinary account; keys are public IDs.
type Cloudinary struct {
	cld    *cloudinary.Cloudinary
	folder string
}

func NewCloudinary(cloudName, apiKey, apiSecret, folder string) (*Cloudinary, error) {
	if cloudName == "" || apiKey == "" || apiSecret == "" {
		return nil, fmt.Errorf("blob: cloudinary credentials not set")
	}
	cld, err := cloudinary.NewFromParams(cloudName, apiKey, apiSecret)
	if err != nil {
		return nil, fmt.Errorf("blob: init cloudinary: %w", err)
	}
	return &Cloudinary{cld: cld, folder: strings.Trim(folder, "/")}, nil
}

func (c *Cloudinary) Save(ctx context.Context, folder, name string, r io.Reader) (string, string, error) {
	if _, err := cleanKey(folder, name); err != nil {
		return "", "", err
	}
	if c.folder != "" {
		folder = c.folder + "/" + folder
	}
	res, err := c.cld.Upload.Upload(ctx, r, uploader.UploadParams{
		Folder:   folder,
		PublicID: strings.TrimSuffix(name, path.Ext(name)),
	})
	if err != nil {
		return "", "", fmt.Errorf("blob: upload: %w", err)
	}
	if res.Error.Message != "" {
		return "", "", fmt.Errorf("blob: upload: %s", res.Error.Message)
	}
	if res.PublicID == "" {
		return "", "", fmt.Errorf("blob: upload: no public id returned")
	}
	return res.SecureURL, res.PublicID, nil
}

func (c *Cloudinary) Delete(ctx context.Context, key string) error {
	res, err := c.cld.Upload.Destroy(ctx, uploader.DestroyParams{PublicID: key})
	if err != nil {
		return fmt.Errorf("blob: destroy %s: %w", key, err)
	}
	if res.Error.Message != "" {
		return fmt.Errorf("blob: destroy %s: %s", key, res.Error.Message)
	}
	return nil
}
