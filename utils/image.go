package utils

import (
	"bytes"
	"crypto/md5"
	"fmt"
	"image"
	"image/color"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"net/http"

	"github.com/google/uuid"
	color_extractor "github.com/marekm4/color-extractor"
)

// BytesToGUIDLocation derives a stable cover location from the image bytes
// themselves, so re-fetching identical artwork maps to the same file.
func BytesToGUIDLocation(image []byte, extension string) (string, uuid.UUID) {
	imageHash := md5.Sum(image)
	guid, _ := uuid.FromBytes(imageHash[:])
	location := fmt.Sprintf("/static/cover.%s.%s", guid, extension)
	return location, guid
}

// ExtractImageContent fetches an image and returns its raw bytes, file
// extension and dominant colours (as hex strings) for client theming.
func ExtractImageContent(client *http.Client, imageUrl string) ([]byte, string, []string, error) {
	req, err := http.NewRequest(http.MethodGet, imageUrl, nil)
	if err != nil {
		return nil, "", nil, err
	}
	res, err := client.Do(req)
	if err != nil {
		return nil, "", nil, err
	}
	defer res.Body.Close()

	var buf bytes.Buffer
	tee := io.TeeReader(res.Body, &buf)

	body, err := io.ReadAll(tee)
	if err != nil {
		return nil, "", nil, err
	}

	mimeType := http.DetectContentType(body)

	extension := ""
	switch mimeType {
	case "image/jpeg":
		extension = "jpeg"
	case "image/png":
		extension = "png"
	}

	var domColours []string
	decoded, _, err := image.Decode(&buf)
	if err == nil {
		for _, c := range color_extractor.ExtractColors(decoded) {
			domColours = append(domColours, colorToHexString(c))
		}
	}

	return body, extension, domColours, nil
}

func colorToHexString(c color.Color) string {
	r, g, b, a := c.RGBA()
	rgba := color.RGBA{uint8(r), uint8(g), uint8(b), uint8(a)}
	return fmt.Sprintf("#%.2x%.2x%.2x", rgba.R, rgba.G, rgba.B)
}
