// Package minio provides a BlobStore backed by MinIO or any S3-compatible
// server reachable without the AWS SDK (Ceph, Garage, SeaweedFS).
//
//	store, err := minio.New("localhost:9000", "datasets",
//	    minio.WithCredentials("minioadmin", "minioadmin"),
//	    minio.WithPrefix("ffm/"),
//	)
//	ds, err := featurestore.Open(ctx, store, "train")
package minio
