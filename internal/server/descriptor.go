package server

import (
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/reflect/protodesc"
	"google.golang.org/protobuf/reflect/protoreflect"
	"google.golang.org/protobuf/reflect/protoregistry"
	"google.golang.org/protobuf/types/descriptorpb"
	"google.golang.org/protobuf/types/known/structpb"
)

// ExtractionProtoFile is the descriptor path of the Extraction service, served
// through reflection.
const ExtractionProtoFile = "docfields/v1/extraction.proto"

func init() {
	fd, err := extractionFileDescriptor()
	if err != nil {
		panic(err)
	}
	if err := protoregistry.GlobalFiles.RegisterFile(fd); err != nil {
		panic(err)
	}
}

// extractionFileDescriptor describes docfields.v1.Extraction over
// google.protobuf.Struct in and out.
func extractionFileDescriptor() (protoreflect.FileDescriptor, error) {
	structFile := (&structpb.Struct{}).ProtoReflect().Descriptor().ParentFile()
	structName := "." + string((&structpb.Struct{}).ProtoReflect().Descriptor().FullName())
	method := func(name string) *descriptorpb.MethodDescriptorProto {
		return &descriptorpb.MethodDescriptorProto{
			Name:       proto.String(name),
			InputType:  proto.String(structName),
			OutputType: proto.String(structName),
		}
	}
	fdp := &descriptorpb.FileDescriptorProto{
		Name:       proto.String(ExtractionProtoFile),
		Package:    proto.String("docfields.v1"),
		Syntax:     proto.String("proto3"),
		Dependency: []string{structFile.Path()},
		Service: []*descriptorpb.ServiceDescriptorProto{{
			Name:   proto.String("Extraction"),
			Method: []*descriptorpb.MethodDescriptorProto{method("Extract"), method("Status")},
		}},
	}
	return protodesc.NewFile(fdp, protoregistry.GlobalFiles)
}
