package htmlbody

// htmlbody is responsible for preparing the HTML content of an email body.
// It's not concerned with the lower-level logic involved in sending the
// email, so the helpers here can also be used to preview bodies, e.g.,
// writing them to stdout before a real send.
