// Copyright 2024 Google LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package fastqindex

import (
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
)

// S3Source is a Source backed by an object in an S3-compatible bucket.
// It has no file-level advisory lock to acquire (object stores don't
// offer one); concurrent readers simply issue independent ranged
// GetObject requests.
type S3Source struct {
	client *s3.S3
	bucket string
	key    string

	size int64
	pos  int64
	eof  bool

	body io.ReadCloser
}

// NewS3Source returns an S3Source for the object at bucket/key. client
// may be nil, in which case Open constructs one from the default
// session and region.
func NewS3Source(client *s3.S3, bucket, key string) *S3Source {
	return &S3Source{client: client, bucket: bucket, key: key}
}

// Open implements Source: it resolves the object's size with a HEAD
// request and is otherwise lazy — the ranged GetObject for sequential
// reads is only issued on first Read.
func (s *S3Source) Open() error {
	if s.client == nil {
		sess, err := session.NewSession()
		if err != nil {
			return fmt.Errorf("%w: creating S3 session: %v", ErrSourceOpen, err)
		}
		s.client = s3.New(sess)
	}
	head, err := s.client.HeadObject(&s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key),
	})
	if err != nil {
		return fmt.Errorf("%w: HEAD %s/%s: %v", ErrSourceOpen, s.bucket, s.key, err)
	}
	if head.ContentLength != nil {
		s.size = *head.ContentLength
	}
	return nil
}

// Close implements Source.
func (s *S3Source) Close() error {
	if s.body != nil {
		err := s.body.Close()
		s.body = nil
		if err != nil {
			return fmt.Errorf("%w: %v", ErrSourceRead, err)
		}
	}
	return nil
}

// openBodyAt issues a ranged GetObject starting at s.pos, replacing any
// previously open body.
func (s *S3Source) openBodyAt(pos int64) error {
	if s.body != nil {
		s.body.Close()
		s.body = nil
	}
	rng := fmt.Sprintf("bytes=%d-", pos)
	out, err := s.client.GetObject(&s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key),
		Range:  aws.String(rng),
	})
	if err != nil {
		return fmt.Errorf("%w: GET %s/%s range %s: %v", ErrSourceRead, s.bucket, s.key, rng, err)
	}
	s.body = out.Body
	s.pos = pos
	return nil
}

// Read implements Source.
func (s *S3Source) Read(buf []byte) (int, error) {
	if s.body == nil {
		if err := s.openBodyAt(s.pos); err != nil {
			return 0, err
		}
	}
	n, err := s.body.Read(buf)
	s.pos += int64(n)
	if err == io.EOF {
		s.eof = true
	} else if err != nil {
		return n, fmt.Errorf("%w: %v", ErrSourceRead, err)
	}
	return n, err
}

// ReadByte implements Source.
func (s *S3Source) ReadByte() (byte, error) {
	var b [1]byte
	n, err := s.Read(b[:])
	if n == 1 {
		return b[0], nil
	}
	if err == nil {
		err = io.EOF
	}
	return 0, err
}

// Seek implements Source by dropping the current GetObject body and
// reopening a new ranged request at the target offset on next Read.
func (s *S3Source) Seek(offset int64, whence SeekWhence) (int64, error) {
	target := offset
	if whence == SeekRelative {
		target = s.pos + offset
	}
	if target < 0 || target > s.size {
		return 0, fmt.Errorf("%w: seek target %d out of range [0,%d]", ErrSourceSeek, target, s.size)
	}
	if s.body != nil {
		s.body.Close()
		s.body = nil
	}
	s.pos = target
	s.eof = false
	return s.pos, nil
}

// Skip implements Source.
func (s *S3Source) Skip(n int64) error {
	_, err := s.Seek(n, SeekRelative)
	return err
}

// Tell implements Source.
func (s *S3Source) Tell() (int64, error) {
	return s.pos, nil
}

// Size implements Source.
func (s *S3Source) Size() (int64, error) {
	return s.size, nil
}

// CanRead implements Source.
func (s *S3Source) CanRead() bool {
	return !s.eof && s.pos < s.size
}

// EOF implements Source.
func (s *S3Source) EOF() bool {
	return s.eof
}
