// Copyright (c) 2026 H0llyW00dzZ All rights reserved.
//
// By accessing or using this software, you agree to be bound by the terms
// of the License Agreement, which you can find at LICENSE files.

package nctls

import (
	"context"
	"fmt"

	x509crl "github.com/H0llyW00dzZ/netconf-tls-client/src/internal/x509/crl"
)

// WatchCRL marks the revocation store dirty whenever the configured CRL file
// or directory changes, until ctx is done. The paths are read once; call
// WatchCRL again after SetCRLPaths.
func (o *OptionSet) WatchCRL(ctx context.Context, opts ...x509crl.WatcherOption) error {
	file, dir := o.CRLPaths()
	if file == "" && dir == "" {
		return fmt.Errorf("%w: no CRL paths to watch", ErrInvalidArgument)
	}

	opts = append([]x509crl.WatcherOption{x509crl.WithWatcherLogger(o.logger)}, opts...)
	w, err := x509crl.NewWatcher(file, dir, func() {
		o.logger.Debugf("%s: CRL change detected, revocation store marked dirty", o.role)
		o.MarkStoreDirty()
	}, opts...)
	if err != nil {
		return err
	}
	defer w.Close()

	return w.Run(ctx)
}
