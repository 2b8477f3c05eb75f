package attachments

import "mercator-hq/parley/pkg/config"

func configLimits(full, preview int64, images map[string]int64) config.AttachmentLimitsConfig {
	return config.AttachmentLimitsConfig{
		DocumentFullReadBytes: full,
		DocumentPreviewBytes:  preview,
		ImageMaxBytes:         images,
	}
}
